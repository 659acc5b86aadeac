// Package blur implements the downscale + separable Gaussian blur transform.
//
// The transform is pure: it never mutates its input, keeps no state between
// calls and may be invoked concurrently from any goroutine.
package blur

import (
	"math"

	"github.com/anthonynsimon/bild/transform"
)

// Engine is an immutable blur configuration. The zero value is not useful,
// start from NewEngine.
type Engine struct {
	params Parameters
}

func NewEngine() Engine {
	return Engine{params: DefaultParameters()}
}

// WithParameters returns a copy of the engine using the given values. Nothing
// is validated until the engine is used.
func (e Engine) WithParameters(scaleFactor, radius float64) Engine {
	e.params = Parameters{ScaleFactor: scaleFactor, Radius: radius}
	return e
}

func (e Engine) Parameters() Parameters {
	return e.params
}

// Blur applies the engine's parameters to input.
func (e Engine) Blur(input *PixelBuffer) (*PixelBuffer, error) {
	return Blur(input, e.params)
}

// Blur downsamples input by params.ScaleFactor using nearest-neighbor sampling
// and convolves the result with a clamp-to-edge Gaussian kernel derived from
// params.Radius. All four channels are treated alike.
func Blur(input *PixelBuffer, params Parameters) (*PixelBuffer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	width, height := ScaledSize(input.Width, input.Height, params.ScaleFactor)
	src := input.Image()
	if width != input.Width || height != input.Height {
		src = transform.Resize(src, width, height, transform.NearestNeighbor)
	}

	return convolve(src, Kernel(params.Radius)), nil
}

// ScaledSize rounds each dimension times scale to the nearest integer, never
// going below 1.
func ScaledSize(width, height int, scale float64) (int, int) {
	return scaleDim(width, scale), scaleDim(height, scale)
}

func scaleDim(n int, scale float64) int {
	return max(1, int(math.Round(float64(n)*scale)))
}
