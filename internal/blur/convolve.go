package blur

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
)

// convolve runs the horizontal then vertical pass of a 1D kernel over src.
// src is padded by the kernel half-width with replicated edge pixels first, so
// every tap reads a real sample and the border behaves as clamp-to-edge.
func convolve(src *image.RGBA, kernel []float64) *PixelBuffer {
	half := len(kernel) / 2
	width, height := src.Bounds().Dx(), src.Bounds().Dy()

	padded := clone.Pad(src, half, half, clone.EdgeExtend)
	paddedH := height + 2*half

	// Horizontal pass over every padded row, centre columns only.
	temp := make([]float64, paddedH*width*4)
	for y := range paddedH {
		row := padded.Pix[y*padded.Stride:]
		for x := range width {
			var r, g, b, a float64
			for k, weight := range kernel {
				i := (x + k) * 4
				r += float64(row[i+0]) * weight
				g += float64(row[i+1]) * weight
				b += float64(row[i+2]) * weight
				a += float64(row[i+3]) * weight
			}
			t := (y*width + x) * 4
			temp[t+0] = r
			temp[t+1] = g
			temp[t+2] = b
			temp[t+3] = a
		}
	}

	// Vertical pass; padded rows above and below already hold the edge rows.
	dst := NewPixelBuffer(width, height)
	for y := range height {
		for x := range width {
			var r, g, b, a float64
			for k, weight := range kernel {
				t := ((y+k)*width + x) * 4
				r += temp[t+0] * weight
				g += temp[t+1] * weight
				b += temp[t+2] * weight
				a += temp[t+3] * weight
			}
			d := (y*width + x) * 4
			dst.Pix[d+0] = clampUint8(r)
			dst.Pix[d+1] = clampUint8(g)
			dst.Pix[d+2] = clampUint8(b)
			dst.Pix[d+3] = clampUint8(a)
		}
	}

	return dst
}

// clampUint8 rounds to nearest and clamps to [0, 255].
func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
