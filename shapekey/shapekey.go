package shapekey

import (
	"log"

	"github.com/binzume/vmorfconv/morph"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ShapeKey holds per-vertex deltas of one flex for one mesh.
type ShapeKey struct {
	Name   string
	Deltas []mgl32.Vec3
}

// Deltas returns xyz of count texels starting at pixel offset.
// Vertex ids address the decoded array in row-major order.
func Deltas(data *morph.FloatImage, offset, count int) ([]mgl32.Vec3, error) {
	if offset < 0 || count < 0 || offset+count > data.Width*data.Height {
		return nil, errors.Wrapf(morph.ErrDataIntegrity, "vertices %d..%d outside %dx%d morph data", offset, offset+count, data.Width, data.Height)
	}
	deltas := make([]mgl32.Vec3, count)
	for i := range deltas {
		p := (offset + i) * data.Channels
		deltas[i] = mgl32.Vec3{data.Pix[p], data.Pix[p+1], data.Pix[p+2]}
	}
	return deltas, nil
}

// Apply returns base+deltas.
func Apply(base, deltas []mgl32.Vec3) ([]mgl32.Vec3, error) {
	if len(base) != len(deltas) {
		return nil, errors.Errorf("shapekey: %d vertices, %d deltas", len(base), len(deltas))
	}
	pos := make([]mgl32.Vec3, len(base))
	for i := range base {
		pos[i] = base[i].Add(deltas[i])
	}
	return pos, nil
}

// Builder extracts shape keys for consecutive meshes sharing one morph set.
type Builder struct {
	Decoder *morph.Decoder
	Texture morph.Texture
	Bundle  string
}

func NewBuilder(dec *morph.Decoder, tex morph.Texture) *Builder {
	return &Builder{Decoder: dec, Texture: tex, Bundle: morph.BundlePositionSpeed}
}

// Available reports whether the morph set has the builder's bundle.
func (b *Builder) Available() bool {
	_, ok := b.Decoder.GetBundleIndex(b.Bundle)
	return ok
}

// Build returns one shape key per named flex for the vertices
// [offset, offset+count) of the morph set.
func (b *Builder) Build(offset, count int) ([]*ShapeKey, error) {
	bundleID, ok := b.Decoder.GetBundleIndex(b.Bundle)
	if !ok {
		log.Println("Morph bundle not found:", b.Bundle)
		return nil, nil
	}

	var keys []*ShapeKey
	for _, name := range b.Decoder.MorphSet().FlexNames() {
		if name == "" {
			continue
		}
		data, ok, err := b.Decoder.Decode(name, bundleID, b.Texture)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		deltas, err := Deltas(data, offset, count)
		if err != nil {
			return nil, errors.Wrapf(err, "flex %q", name)
		}
		keys = append(keys, &ShapeKey{Name: name, Deltas: deltas})
	}
	return keys, nil
}
