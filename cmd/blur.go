package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/png"
	"github.com/rm-hull/blurr/internal/png/stage"
	"github.com/rs/zerolog/log"
)

// Blur reads the image at inPath, blurs it and writes a PNG to outPath. With
// restore set, the result is resampled back to the original size.
func Blur(engine blur.Engine, inPath, outPath string, restore bool) error {
	startTime := time.Now()

	img, err := readImage(inPath)
	if err != nil {
		return err
	}
	width, height := img.Buf.Width, img.Buf.Height

	stages := []png.PipelineStage{&stage.GaussianBlurStage{Engine: engine}}
	if restore {
		stages = append(stages, &stage.ResampleStage{Width: width, Height: height})
	}
	if err := img.Pipeline(stages...); err != nil {
		return fmt.Errorf("failed to process image pipeline: %w", err)
	}

	if err := writeAtomically(outPath, img.Write); err != nil {
		return err
	}

	params := engine.Parameters()
	log.Info().
		Str("input", inPath).
		Str("output", outPath).
		Float64("scale_factor", params.ScaleFactor).
		Float64("radius", params.Radius).
		Int("width", img.Buf.Width).
		Int("height", img.Buf.Height).
		Dur("elapsed", time.Since(startTime)).
		Msg("blurred")
	return nil
}

func readImage(path string) (*png.PngImage, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = in.Close()
	}()

	img, err := png.NewPngFromReader(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// writeAtomically writes via a temporary file in the destination directory
// so a failed write never leaves a partial output behind.
func writeAtomically(path string, write func(w io.Writer) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "blurr-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if err := write(tmpFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file before rename: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	cleanupTemp = false
	return nil
}
