package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/rm-hull/blurr/internal/blur"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrDecode = errors.New("failed to decode image")

// Reader decodes a PNG, JPEG, GIF, BMP, TIFF or WebP stream.
type Reader struct {
	R io.Reader
}

func (r Reader) PixelBuffer() (*blur.PixelBuffer, error) {
	img, format, err := image.Decode(r.R)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty %s image", blur.ErrInvalidInput, format)
	}
	return blur.FromImage(img), nil
}

// File decodes the image stored at Path.
type File struct {
	Path string
}

func (f File) PixelBuffer() (*blur.PixelBuffer, error) {
	in, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = in.Close()
	}()

	buf, err := Reader{R: in}.PixelBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return buf, nil
}
