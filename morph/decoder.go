package morph

import (
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type cacheKey struct {
	bundle int
	flex   string
}

// Decoder reconstructs per-vertex flex data from a morph atlas.
// Decoded arrays are memoized per (bundle, flex) for the lifetime of the Decoder.
// A Decoder is safe for concurrent use.
type Decoder struct {
	set *MorphSet

	mu    sync.RWMutex
	cache map[cacheKey]*FloatImage
}

func NewDecoder(set *MorphSet) *Decoder {
	return &Decoder{
		set:   set,
		cache: map[cacheKey]*FloatImage{},
	}
}

func (d *Decoder) MorphSet() *MorphSet {
	return d.set
}

// GetBundleIndex returns the index of bundleName in the bundle types.
func (d *Decoder) GetBundleIndex(bundleName string) (int, bool) {
	return d.set.BundleIndex(bundleName)
}

// Decode returns the Height x Width x 4 array of flexName for bundleID,
// sampling rectangles from tex. ok is false if the set has no such flex.
// The returned array is shared by later calls and must not be modified.
func (d *Decoder) Decode(flexName string, bundleID int, tex Texture) (img *FloatImage, ok bool, err error) {
	key := cacheKey{bundle: bundleID, flex: flexName}

	d.mu.RLock()
	if img, exists := d.cache[key]; exists {
		d.mu.RUnlock()
		return img, true, nil
	}
	d.mu.RUnlock()

	if err := d.set.CheckFormat(); err != nil {
		return nil, false, err
	}
	if bundleID < 0 || bundleID >= len(d.set.BundleTypes) {
		return nil, false, errors.Wrapf(ErrInvalidArgument, "bundle index %d out of %d bundles", bundleID, len(d.set.BundleTypes))
	}
	if tex == nil {
		return nil, false, errors.Wrap(ErrInvalidArgument, "nil texture")
	}
	if c := tex.Components(); c < 4 {
		return nil, false, errors.Wrapf(ErrInvalidArgument, "texture has %d components", c)
	}

	entry, found := d.set.Entry(flexName)
	if !found {
		log.Printf("%v: %q", ErrFlexNotFound, flexName)
		return nil, false, nil
	}

	img, err = d.decode(entry, bundleID, tex)
	if err != nil {
		return nil, false, errors.Wrapf(err, "flex %q", flexName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cached, exists := d.cache[key]; exists {
		return cached, true, nil
	}
	d.cache[key] = img
	return img, true, nil
}

func (d *Decoder) decode(entry *MorphEntry, bundleID int, tex Texture) (*FloatImage, error) {
	tw, th := tex.Size()
	dst := NewFloatImage(d.set.Width, d.set.Height, 4)

	for n, rect := range entry.Rects {
		if bundleID >= len(rect.Bundles) || rect.Bundles[bundleID] == nil {
			return nil, errors.Wrapf(ErrDataIntegrity, "rect %d has no bundle %d", n, bundleID)
		}
		bundle := rect.Bundles[bundleID]

		w := scaleUV(rect.UWidthSrc, tw)
		h := scaleUV(rect.VHeightSrc, th)
		u := scaleUV(bundle.ULeftSrc, tw)
		v := scaleUV(bundle.VTopSrc, th)
		x0, y0 := rect.XLeftDst, rect.YTopDst

		if w < 0 || h < 0 || u < 0 || v < 0 || u+w > tw || v+h > th {
			return nil, errors.Wrapf(ErrDataIntegrity, "rect %d: source %dx%d at (%d,%d) outside %dx%d texture", n, w, h, u, v, tw, th)
		}
		if x0 < 0 || y0 < 0 || x0+w > dst.Width || y0+h > dst.Height {
			return nil, errors.Wrapf(ErrDataIntegrity, "rect %d: destination %dx%d at (%d,%d) outside %dx%d", n, w, h, x0, y0, dst.Width, dst.Height)
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetTexel(x0+x, y0+y, dequantize(tex.Texel(u+x, v+y), bundle))
			}
		}
	}
	return dst, nil
}

// scaleUV converts a normalized coordinate to pixels, rounding half to even.
func scaleUV(f float32, size int) int {
	return int(math.RoundToEven(float64(f) * float64(size)))
}

func dequantize(t mgl32.Vec4, b *MorphBundle) mgl32.Vec4 {
	var r mgl32.Vec4
	for i := range r {
		r[i] = float32(float64(t[i])*float64(b.Ranges[i]) + float64(b.Offsets[i]))
	}
	return r
}
