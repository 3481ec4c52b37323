package atlas

import (
	"encoding/binary"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/vmorfconv/morph"
	"github.com/pkg/errors"

	"github.com/blezek/tga"
	ftga "github.com/ftrvxmtrx/tga"
	"github.com/oov/psd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Decoders by file extension. ftrvxmtrx/tga registers an empty magic
// string that matches any input, so image.Decode is not used.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".bmp":  bmp.Decode,
	".psd":  decodePSD,
}

func decodePSD(r io.Reader) (image.Image, error) {
	img, _, err := psd.Decode(r, &psd.DecodeOptions{SkipLayerImage: true})
	if err != nil {
		return nil, err
	}
	return img.Picker, nil
}

func decodeTGA(f io.ReadSeeker) (image.Image, error) {
	img, err := ftga.Decode(f)
	if err == nil {
		return img, nil
	}
	// retry
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return tga.Decode(f)
}

// Load decodes an atlas image into a 4 channel float texture in [0,1].
func Load(path string) (*morph.FloatImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tga" {
		img, err = decodeTGA(f)
	} else if decode, ok := decoders[ext]; ok {
		img, err = decode(f)
	} else {
		return nil, errors.Wrapf(morph.ErrInvalidArgument, "atlas: unknown image type %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "atlas: decode %s", path)
	}
	return FromImage(img), nil
}

// FromImage converts img to floats. Channels are read without premultiplying,
// the alpha channel holds morph data.
func FromImage(img image.Image) *morph.FloatImage {
	b := img.Bounds()
	dst := morph.NewFloatImage(b.Dx(), b.Dy(), 4)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				s := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				d := dst.PixOffset(x, y)
				for c := 0; c < 4; c++ {
					dst.Pix[d+c] = float32(src.Pix[s+c]) / 0xff
				}
			}
		}
	default:
		src64, ok := img.(*image.NRGBA64)
		if !ok {
			src64 = image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
			draw.Draw(src64, src64.Bounds(), img, b.Min, draw.Src)
			b = src64.Bounds()
		}
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := src64.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				d := dst.PixOffset(x, y)
				dst.Pix[d+0] = float32(c.R) / 0xffff
				dst.Pix[d+1] = float32(c.G) / 0xffff
				dst.Pix[d+2] = float32(c.B) / 0xffff
				dst.Pix[d+3] = float32(c.A) / 0xffff
			}
		}
	}
	return dst
}

// ReadRaw reads width*height*channels little-endian float32 values.
func ReadRaw(r io.Reader, width, height, channels int) (*morph.FloatImage, error) {
	if width <= 0 || height <= 0 || channels < 4 {
		return nil, errors.Wrapf(morph.ErrInvalidArgument, "atlas: raw %dx%dx%d", width, height, channels)
	}
	img := morph.NewFloatImage(width, height, channels)
	if err := binary.Read(r, binary.LittleEndian, img.Pix); err != nil {
		return nil, errors.Wrap(err, "atlas: read raw")
	}
	return img, nil
}

// LoadRaw reads a raw float32 atlas file. The file size must match the given shape.
func LoadRaw(path string, width, height, channels int) (*morph.FloatImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if int64(width)*int64(height)*int64(channels)*4 != st.Size() {
		return nil, errors.Wrapf(morph.ErrInvalidArgument, "atlas: %s is %d bytes, not a %dx%dx%d float32 array", path, st.Size(), width, height, channels)
	}
	return ReadRaw(f, width, height, channels)
}

// ToImage maps each channel of img linearly from its min/max to the 16 bit range.
func ToImage(img *morph.FloatImage) *image.NRGBA64 {
	var lo, hi [4]float64
	for c := 0; c < 4; c++ {
		lo[c], hi[c] = math.Inf(1), math.Inf(-1)
	}
	n := img.Channels
	if n > 4 {
		n = 4
	}
	for i := 0; i+n <= len(img.Pix); i += img.Channels {
		for c := 0; c < n; c++ {
			v := float64(img.Pix[i+c])
			lo[c] = math.Min(lo[c], v)
			hi[c] = math.Max(hi[c], v)
		}
	}

	dst := image.NewNRGBA64(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := img.Texel(x, y)
			var px [4]uint16
			for c := 0; c < 4; c++ {
				if c >= n {
					px[c] = 0xffff
				} else if hi[c] > lo[c] {
					px[c] = uint16(math.Round((float64(v[c]) - lo[c]) / (hi[c] - lo[c]) * 0xffff))
				}
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[o+c*2] = uint8(px[c] >> 8)
				dst.Pix[o+c*2+1] = uint8(px[c])
			}
		}
	}
	return dst
}

// SavePNG writes a normalized 16 bit preview of img.
func SavePNG(img *morph.FloatImage, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return png.Encode(w, ToImage(img))
}
