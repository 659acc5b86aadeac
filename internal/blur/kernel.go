package blur

import (
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// Sigma maps a blur radius to the Gaussian standard deviation.
func Sigma(radius float64) float64 {
	return 0.4*radius + 0.6
}

// Kernel returns the normalized 1D Gaussian weights for radius. The kernel
// spans ceil(radius) samples either side of the centre.
func Kernel(radius float64) []float64 {
	half := int(math.Ceil(radius))
	length := half*2 + 1

	k := convolution.NewKernel(length, 1)
	twoSigmaSq := 2 * Sigma(radius) * Sigma(radius)
	for i := range length {
		x := float64(i - half)
		k.Matrix[i] = math.Exp(-(x * x) / twoSigmaSq)
	}

	norm := k.Normalized()
	weights := make([]float64, length)
	for i := range weights {
		weights[i] = norm.At(i, 0)
	}
	return weights
}
