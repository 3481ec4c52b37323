package morph

import "github.com/pkg/errors"

var (
	// ErrUnsupportedFormat is returned for lookup or encoding types other than
	// vertex id lookup with object space encoding.
	ErrUnsupportedFormat = errors.New("morph: unsupported format")
	// ErrFlexNotFound is logged when a requested flex is absent.
	ErrFlexNotFound = errors.New("morph: flex not found")
	// ErrInvalidArgument marks a caller error such as a bad bundle index or texture.
	ErrInvalidArgument = errors.New("morph: invalid argument")
	// ErrDataIntegrity marks rectangles that do not fit the texture or the output array.
	ErrDataIntegrity = errors.New("morph: data integrity")
)
