package source

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap_PassThrough(t *testing.T) {
	buf := blur.NewPixelBuffer(3, 2)

	got, err := Bitmap{Buffer: buf}.PixelBuffer()
	require.NoError(t, err)
	assert.Same(t, buf, got)

	_, err = Bitmap{Buffer: &blur.PixelBuffer{Pix: make([]uint8, 3), Width: 1, Height: 1}}.PixelBuffer()
	assert.ErrorIs(t, err, blur.ErrInvalidInput)

	_, err = Bitmap{}.PixelBuffer()
	assert.ErrorIs(t, err, blur.ErrInvalidInput)
}

func TestImage_CopiesPixels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 20, 14, 23))
	src.Set(10, 20, color.NRGBA{R: 255, A: 255})
	src.Set(13, 22, color.NRGBA{G: 255, A: 255})

	buf, err := Image{Img: src}.PixelBuffer()
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Width)
	assert.Equal(t, 3, buf.Height)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, buf.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, buf.RGBAAt(3, 2))

	_, err = Image{Img: image.NewRGBA(image.Rectangle{})}.PixelBuffer()
	assert.ErrorIs(t, err, blur.ErrInvalidInput)
}

type fillDrawable struct {
	w, h int
	c    color.Color
	last image.Rectangle
}

func (d *fillDrawable) IntrinsicSize() (int, int) { return d.w, d.h }

func (d *fillDrawable) Draw(dst draw.Image, r image.Rectangle) {
	d.last = r
	draw.Draw(dst, r, image.NewUniform(d.c), image.Point{}, draw.Src)
}

type bitmapDrawable struct {
	fillDrawable
	bm *blur.PixelBuffer
}

func (d *bitmapDrawable) Bitmap() *blur.PixelBuffer { return d.bm }

func TestFromDrawable(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}

	t.Run("intrinsic size", func(t *testing.T) {
		d := &fillDrawable{w: 5, h: 3, c: red}
		buf, err := FromDrawable(d).PixelBuffer()
		require.NoError(t, err)
		assert.Equal(t, 5, buf.Width)
		assert.Equal(t, 3, buf.Height)
		assert.Equal(t, image.Rect(0, 0, 5, 3), d.last)
		assert.Equal(t, red, buf.RGBAAt(4, 2))
	})

	t.Run("no intrinsic size renders one pixel", func(t *testing.T) {
		d := &fillDrawable{w: -1, h: 0, c: red}
		buf, err := FromDrawable(d).PixelBuffer()
		require.NoError(t, err)
		assert.Equal(t, 1, buf.Width)
		assert.Equal(t, 1, buf.Height)
		assert.Equal(t, red, buf.RGBAAt(0, 0))
	})

	t.Run("bitmap backed drawable", func(t *testing.T) {
		bm := blur.NewPixelBuffer(2, 2)
		d := &bitmapDrawable{fillDrawable: fillDrawable{w: 9, h: 9, c: red}, bm: bm}
		buf, err := FromDrawable(d).PixelBuffer()
		require.NoError(t, err)
		assert.Same(t, bm, buf)
		assert.Equal(t, image.Rectangle{}, d.last, "bitmap drawables are not redrawn")
	})

	t.Run("bitmap drawable without bitmap", func(t *testing.T) {
		d := &bitmapDrawable{fillDrawable: fillDrawable{w: 2, h: 1, c: red}}
		buf, err := FromDrawable(d).PixelBuffer()
		require.NoError(t, err)
		assert.Equal(t, 2, buf.Width)
		assert.Equal(t, red, buf.RGBAAt(1, 0))
	})

	t.Run("nil drawable", func(t *testing.T) {
		_, err := FromDrawable(nil).PixelBuffer()
		assert.ErrorIs(t, err, blur.ErrInvalidInput)
	})
}

func TestImageDrawable(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	draw.Draw(src, src.Bounds(), image.NewUniform(color.RGBA{B: 255, A: 255}), image.Point{}, draw.Src)

	d := ImageDrawable{Img: src}
	w, h := d.IntrinsicSize()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)

	buf, err := FromDrawable(d).PixelBuffer()
	require.NoError(t, err)
	got := buf.RGBAAt(3, 2)
	assert.Zero(t, got.R)
	assert.InDelta(t, 255, int(got.B), 1)
	assert.InDelta(t, 255, int(got.A), 1)

	w, h = ImageDrawable{}.IntrinsicSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

type stripeView struct {
	w, h   int
	scroll image.Point
}

func (v stripeView) Measure() (int, int)       { return v.w, v.h }
func (v stripeView) ScrollOffset() image.Point { return v.scroll }

// Draw paints column x with red = x, in view coordinates.
func (v stripeView) Draw(dst draw.Image) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, color.RGBA{R: uint8(x), A: 255})
		}
	}
}

func TestFromView(t *testing.T) {
	t.Run("measured size", func(t *testing.T) {
		buf, err := FromView(stripeView{w: 6, h: 2}).PixelBuffer()
		require.NoError(t, err)
		assert.Equal(t, 6, buf.Width)
		assert.Equal(t, 2, buf.Height)
		assert.Equal(t, uint8(5), buf.RGBAAt(5, 1).R)
	})

	t.Run("scroll offset", func(t *testing.T) {
		buf, err := FromView(stripeView{w: 4, h: 1, scroll: image.Pt(10, 0)}).PixelBuffer()
		require.NoError(t, err)
		assert.Equal(t, uint8(10), buf.RGBAAt(0, 0).R)
		assert.Equal(t, uint8(13), buf.RGBAAt(3, 0).R)
	})

	t.Run("unmeasured view", func(t *testing.T) {
		_, err := FromView(stripeView{w: 0, h: 10}).PixelBuffer()
		assert.ErrorIs(t, err, blur.ErrInvalidInput)
	})

	t.Run("nil view", func(t *testing.T) {
		_, err := FromView(nil).PixelBuffer()
		assert.ErrorIs(t, err, blur.ErrInvalidInput)
	})
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestReader(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 3))
	src.Set(1, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	buf, err := Reader{R: bytes.NewReader(encodePNG(t, src))}.PixelBuffer()
	require.NoError(t, err)
	assert.Equal(t, 3, buf.Width)
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, buf.RGBAAt(1, 1))

	_, err = Reader{R: strings.NewReader("not an image")}.PixelBuffer()
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, image.NewRGBA(image.Rect(0, 0, 7, 5))), 0644))

	buf, err := File{Path: path}.PixelBuffer()
	require.NoError(t, err)
	assert.Equal(t, 7, buf.Width)
	assert.Equal(t, 5, buf.Height)

	_, err = File{Path: filepath.Join(t.TempDir(), "missing.png")}.PixelBuffer()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
