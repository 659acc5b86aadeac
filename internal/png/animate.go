package png

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/kettek/apng"
	"github.com/rm-hull/blurr/internal/blur"
)

// MaxFrameDelay is the longest frame delay, in seconds, an APNG frame can
// carry at millisecond precision.
const MaxFrameDelay = math.MaxUint16 / 1000.0

// Animate renders an APNG in which the blur radius ramps linearly up to the
// engine's radius over the given number of frames.
func Animate(img *PngImage, engine blur.Engine, frames int, frameDelay float64) ([]byte, error) {
	if frames < 2 {
		return nil, errors.New("an animation needs at least 2 frames")
	}
	if !(frameDelay > 0 && frameDelay <= MaxFrameDelay) {
		return nil, fmt.Errorf("frame delay must be in (0, %v] seconds, got %v", MaxFrameDelay, frameDelay)
	}

	params := engine.Parameters()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	a := apng.APNG{
		Frames:    make([]apng.Frame, frames),
		LoopCount: 0,
	}

	for i := range frames {
		radius := params.Radius * float64(i+1) / float64(frames)
		blurred, err := engine.WithParameters(params.ScaleFactor, radius).Blur(img.Buf)
		if err != nil {
			return nil, fmt.Errorf("failed to blur frame %d: %w", i, err)
		}

		a.Frames[i] = apng.Frame{
			Image:            blurred.Image(),
			DelayNumerator:   uint16(math.Round(frameDelay * 1000)),
			DelayDenominator: 1000,
		}
	}

	var buf bytes.Buffer
	if err := apng.Encode(&buf, a); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
