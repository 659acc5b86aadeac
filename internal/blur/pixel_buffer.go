package blur

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// PixelBuffer is an owned RGBA8888 image: interleaved, alpha-premultiplied samples
// laid out row by row with no padding between rows.
type PixelBuffer struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewPixelBuffer allocates a zeroed (transparent black) buffer.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Pix:    make([]uint8, width*height*4),
		Width:  width,
		Height: height,
	}
}

// FromImage copies any image into a new buffer anchored at (0, 0).
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	buf := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	draw.Draw(buf.Image(), buf.Image().Bounds(), img, bounds.Min, draw.Src)
	return buf
}

// Image returns an *image.RGBA sharing the buffer's pixels.
func (b *PixelBuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Validate reports ErrInvalidInput when the dimensions are not positive or the
// sample count does not match them.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidInput)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidInput, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d, want %d", ErrInvalidInput, len(b.Pix), b.Width, b.Height, want)
	}
	return nil
}

func (b *PixelBuffer) RGBAAt(x, y int) color.RGBA {
	i := (y*b.Width + x) * 4
	return color.RGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

func (b *PixelBuffer) SetRGBA(x, y int, c color.RGBA) {
	i := (y*b.Width + x) * 4
	b.Pix[i+0] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	b.Pix[i+3] = c.A
}

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Pix: pix, Width: b.Width, Height: b.Height}
}
