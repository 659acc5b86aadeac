package stage

import (
	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/png"
)

type GaussianBlurStage struct {
	Engine blur.Engine
}

// Process downsamples and blurs the image with the engine's parameters.
// The image shrinks by the engine's scale factor.
func (s *GaussianBlurStage) Process(p *png.PngImage) error {
	blurred, err := s.Engine.Blur(p.Buf)
	if err != nil {
		return err
	}
	p.Buf = blurred
	return nil
}
