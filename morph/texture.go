package morph

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a decoded float atlas.
// Texel returns the first four components at (x, y).
type Texture interface {
	Size() (width, height int)
	Components() int
	Texel(x, y int) mgl32.Vec4
}

// FloatImage is a row-major Height x Width x Channels float32 array.
type FloatImage struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

func NewFloatImage(width, height, channels int) *FloatImage {
	return &FloatImage{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

func (img *FloatImage) Size() (int, int) {
	return img.Width, img.Height
}

func (img *FloatImage) Components() int {
	return img.Channels
}

func (img *FloatImage) PixOffset(x, y int) int {
	return (y*img.Width + x) * img.Channels
}

func (img *FloatImage) Texel(x, y int) mgl32.Vec4 {
	var v mgl32.Vec4
	i := img.PixOffset(x, y)
	copy(v[:], img.Pix[i:i+img.texelLen()])
	return v
}

func (img *FloatImage) SetTexel(x, y int, v mgl32.Vec4) {
	i := img.PixOffset(x, y)
	copy(img.Pix[i:i+img.texelLen()], v[:])
}

func (img *FloatImage) texelLen() int {
	if img.Channels > 4 {
		return 4
	}
	return img.Channels
}
