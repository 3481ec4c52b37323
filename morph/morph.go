package morph

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type LookupType string
type EncodingType string

const (
	LookupVertexID      LookupType   = "LOOKUP_TYPE_VERTEX_ID"
	EncodingObjectSpace EncodingType = "ENCODING_TYPE_OBJECT_SPACE"
)

// Well known bundle names.
const (
	BundlePositionSpeed = "MORPH_BUNDLE_TYPE_POSITION_SPEED"
	BundleNormalWrinkle = "MORPH_BUNDLE_TYPE_NORMAL_WRINKLE"
)

// MorphSet is the decoded MorphSetData_t of a vmorf resource.
type MorphSet struct {
	LookupType   LookupType
	EncodingType EncodingType
	BundleTypes  []string
	Width        int
	Height       int
	Entries      []*MorphEntry
}

type MorphEntry struct {
	Name  string
	Rects []*MorphRect
}

// MorphRect is a packed rectangle in the atlas.
// UWidthSrc and VHeightSrc are normalized to the physical texture size,
// XLeftDst and YTopDst are pixels in the logical Width x Height array.
type MorphRect struct {
	UWidthSrc  float32
	VHeightSrc float32
	XLeftDst   int
	YTopDst    int
	Bundles    []*MorphBundle
}

type MorphBundle struct {
	ULeftSrc float32
	VTopSrc  float32
	Ranges   mgl32.Vec4
	Offsets  mgl32.Vec4
}

func trimScope(s string) string {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		return s[i+2:]
	}
	return s
}

// CheckFormat reports ErrUnsupportedFormat unless the set uses vertex id lookup
// with object space encoding.
func (s *MorphSet) CheckFormat() error {
	if LookupType(trimScope(string(s.LookupType))) != LookupVertexID {
		return errors.Wrapf(ErrUnsupportedFormat, "lookup type %q", s.LookupType)
	}
	if EncodingType(trimScope(string(s.EncodingType))) != EncodingObjectSpace {
		return errors.Wrapf(ErrUnsupportedFormat, "encoding type %q", s.EncodingType)
	}
	return nil
}

// Entry finds a flex by name.
func (s *MorphSet) Entry(name string) (*MorphEntry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

func (s *MorphSet) FlexNames() []string {
	names := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		names = append(names, e.Name)
	}
	return names
}

// BundleIndex returns the position of name in BundleTypes.
func (s *MorphSet) BundleIndex(name string) (int, bool) {
	for i, b := range s.BundleTypes {
		if b == name {
			return i, true
		}
	}
	return 0, false
}
