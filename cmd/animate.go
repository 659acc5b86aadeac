package cmd

import (
	"io"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/png"
	"github.com/rs/zerolog/log"
)

// Animate writes an animated PNG showing the blur building up to the
// engine's radius.
func Animate(engine blur.Engine, inPath, outPath string, frames int, frameDelay float64) error {
	img, err := readImage(inPath)
	if err != nil {
		return err
	}

	data, err := png.Animate(img, engine, frames, frameDelay)
	if err != nil {
		return err
	}

	err = writeAtomically(outPath, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return err
	}

	log.Info().Str("output", outPath).Int("frames", frames).Int("bytes", len(data)).Msg("animation written")
	return nil
}
