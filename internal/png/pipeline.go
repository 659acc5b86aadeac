package png

import (
	"image/png"
	"io"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/source"
)

type PngImage struct {
	Buf *blur.PixelBuffer
}

type PipelineStage interface {
	Process(img *PngImage) error
}

// NewPngFromReader decodes any supported image format; output is always PNG.
func NewPngFromReader(r io.Reader) (*PngImage, error) {
	buf, err := source.Reader{R: r}.PixelBuffer()
	if err != nil {
		return nil, err
	}
	return &PngImage{Buf: buf}, nil
}

func (p *PngImage) Write(w io.Writer) error {
	return png.Encode(w, p.Buf.Image())
}

func (p *PngImage) Pipeline(stages ...PipelineStage) error {
	for _, stage := range stages {
		if err := stage.Process(p); err != nil {
			return err
		}
	}
	return nil
}
