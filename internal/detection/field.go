package detection

import (
	"image"
	"math"
)

// Field is a dense grayscale plane with float64 samples, row-major.
// Detection math runs on Fields rather than image.Image so the inner
// loops stay free of interface calls and color conversions.
type Field struct {
	W, H int
	Pix  []float64
}

// NewField allocates a zero-valued field of the given dimensions.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the sample at (x, y). No bounds checking.
func (f *Field) At(x, y int) float64 {
	return f.Pix[y*f.W+x]
}

// Sub extracts a copy of the rectangle r (field-local coordinates).
// r must lie within the field.
func (f *Field) Sub(r image.Rectangle) *Field {
	out := NewField(r.Dx(), r.Dy())
	for y := 0; y < out.H; y++ {
		src := (r.Min.Y+y)*f.W + r.Min.X
		copy(out.Pix[y*out.W:(y+1)*out.W], f.Pix[src:src+out.W])
	}
	return out
}

// GrayField extracts the rectangle r of img as a [0, 1] luma plane using
// ITU-R BT.601 weights (0.299 R + 0.587 G + 0.114 B). r must lie within
// the image bounds.
func GrayField(img *image.NRGBA, r image.Rectangle) *Field {
	f := NewField(r.Dx(), r.Dy())
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := img.PixOffset(r.Min.X, y)
		for x := 0; x < f.W; x++ {
			rr := float64(img.Pix[off])
			gg := float64(img.Pix[off+1])
			bb := float64(img.Pix[off+2])
			f.Pix[i] = (0.299*rr + 0.587*gg + 0.114*bb) / 255.0
			i++
			off += 4
		}
	}
	return f
}

// SobelMagnitude computes the gradient magnitude of f with the 3x3 Sobel
// kernels, sqrt(Gx² + Gy²) per sample. Border samples use clamped
// (replicated) edge values.
func SobelMagnitude(f *Field) *Field {
	out := NewField(f.W, f.H)
	for y := 0; y < f.H; y++ {
		ym := clampInt(y-1, 0, f.H-1)
		yp := clampInt(y+1, 0, f.H-1)
		for x := 0; x < f.W; x++ {
			xm := clampInt(x-1, 0, f.W-1)
			xp := clampInt(x+1, 0, f.W-1)

			tl, tc, tr := f.At(xm, ym), f.At(x, ym), f.At(xp, ym)
			ml, mr := f.At(xm, y), f.At(xp, y)
			bl, bc, br := f.At(xm, yp), f.At(x, yp), f.At(xp, yp)

			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
			out.Pix[y*f.W+x] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return out
}

// MeanStdDev returns the mean and population standard deviation of f.
func MeanStdDev(f *Field) (mean, std float64) {
	n := float64(len(f.Pix))
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, v := range f.Pix {
		sum += v
		sumSq += v * v
	}
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return mean, std
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
