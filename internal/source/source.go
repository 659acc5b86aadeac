// Package source converts the things callers want blurred into pixel buffers.
package source

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/rm-hull/blurr/internal/blur"
	xdraw "golang.org/x/image/draw"
)

// Source yields the pixels to blur.
type Source interface {
	PixelBuffer() (*blur.PixelBuffer, error)
}

// Bitmap passes an existing buffer through untouched.
type Bitmap struct {
	Buffer *blur.PixelBuffer
}

func (b Bitmap) PixelBuffer() (*blur.PixelBuffer, error) {
	if err := b.Buffer.Validate(); err != nil {
		return nil, err
	}
	return b.Buffer, nil
}

// Image copies any decoded image into a buffer.
type Image struct {
	Img image.Image
}

func (i Image) PixelBuffer() (*blur.PixelBuffer, error) {
	if i.Img == nil || i.Img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", blur.ErrInvalidInput)
	}
	return blur.FromImage(i.Img), nil
}

// Drawable is content with a preferred size that can paint itself into any
// rectangle.
type Drawable interface {
	IntrinsicSize() (width, height int)
	Draw(dst draw.Image, r image.Rectangle)
}

// BitmapDrawable is a drawable already backed by pixels, which are used as-is.
type BitmapDrawable interface {
	Drawable
	Bitmap() *blur.PixelBuffer
}

type drawableSource struct {
	d Drawable
}

// FromDrawable rasterizes d at its intrinsic size. Drawables without an
// intrinsic size are rendered into a single pixel.
func FromDrawable(d Drawable) Source {
	return drawableSource{d: d}
}

func (s drawableSource) PixelBuffer() (*blur.PixelBuffer, error) {
	if s.d == nil {
		return nil, fmt.Errorf("%w: nil drawable", blur.ErrInvalidInput)
	}
	if bd, ok := s.d.(BitmapDrawable); ok {
		if bm := bd.Bitmap(); bm != nil {
			return Bitmap{Buffer: bm}.PixelBuffer()
		}
	}

	width, height := s.d.IntrinsicSize()
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}

	buf := blur.NewPixelBuffer(width, height)
	canvas := buf.Image()
	s.d.Draw(canvas, canvas.Bounds())
	return buf, nil
}

// ImageDrawable paints an image scaled to whatever rectangle it is given.
type ImageDrawable struct {
	Img image.Image
}

func (d ImageDrawable) IntrinsicSize() (int, int) {
	if d.Img == nil {
		return 0, 0
	}
	return d.Img.Bounds().Dx(), d.Img.Bounds().Dy()
}

func (d ImageDrawable) Draw(dst draw.Image, r image.Rectangle) {
	if d.Img == nil {
		return
	}
	xdraw.CatmullRom.Scale(dst, r, d.Img, d.Img.Bounds(), xdraw.Over, nil)
}

// View is a UI element that can be measured and rendered.
type View interface {
	Measure() (width, height int)
	ScrollOffset() image.Point
	Draw(dst draw.Image)
}

type viewSource struct {
	v View
}

// FromView renders v at its measured size, shifted by its scroll offset.
func FromView(v View) Source {
	return viewSource{v: v}
}

func (s viewSource) PixelBuffer() (*blur.PixelBuffer, error) {
	if s.v == nil {
		return nil, fmt.Errorf("%w: nil view", blur.ErrInvalidInput)
	}

	width, height := s.v.Measure()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: view measured %dx%d", blur.ErrInvalidInput, width, height)
	}

	buf := blur.NewPixelBuffer(width, height)
	canvas := buf.Image()

	// Offset the canvas so view coordinate (scrollX, scrollY) lands on (0, 0).
	scroll := s.v.ScrollOffset()
	canvas.Rect = canvas.Rect.Add(scroll)
	s.v.Draw(canvas)

	return buf, nil
}
