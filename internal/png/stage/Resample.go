package stage

import (
	"fmt"
	"image"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/png"
	"golang.org/x/image/draw"
)

type ResampleStage struct {
	Width  int
	Height int
}

// Process applies a Catmull-Rom resampling to bring a downscaled blur back to
// its display size. The smooth filter hides the blockiness a nearest-neighbor
// upscale would show.
func (s *ResampleStage) Process(p *png.PngImage) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: resample target %dx%d must be positive", blur.ErrInvalidInput, s.Width, s.Height)
	}
	if p.Buf.Width == s.Width && p.Buf.Height == s.Height {
		return nil
	}

	resized := blur.NewPixelBuffer(s.Width, s.Height)
	dst := resized.Image()
	draw.CatmullRom.Scale(dst, dst.Bounds(), p.Buf.Image(), image.Rect(0, 0, p.Buf.Width, p.Buf.Height), draw.Src, nil)
	p.Buf = resized
	return nil
}
