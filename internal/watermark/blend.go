package watermark

import (
	"image"
	"math"
)

// reverseEpsilon is the lower clamp on the reverse-blend divisor (1 −
// alpha). Near-unity opacity leaves almost no original signal to recover;
// clamping keeps the division finite and the pixel clamp below does the
// rest.
const reverseEpsilon = 1e-3

// applyForward composites the overlay onto img in place:
//
//	result = alpha·logo + (1−alpha)·original
//
// per channel, over the map's footprint clamped to the image bounds.
// Pixels with zero opacity are untouched.
func applyForward(img *image.NRGBA, m *AlphaMap, pos image.Point, logo float64) {
	footprint := image.Rect(pos.X, pos.Y, pos.X+m.w, pos.Y+m.h).Intersect(img.Bounds())
	for y := footprint.Min.Y; y < footprint.Max.Y; y++ {
		off := img.PixOffset(footprint.Min.X, y)
		my := y - pos.Y
		for x := footprint.Min.X; x < footprint.Max.X; x++ {
			alpha := m.At(x-pos.X, my)
			if alpha > 0 {
				img.Pix[off] = blendChannel(float64(img.Pix[off]), alpha, logo)
				img.Pix[off+1] = blendChannel(float64(img.Pix[off+1]), alpha, logo)
				img.Pix[off+2] = blendChannel(float64(img.Pix[off+2]), alpha, logo)
			}
			off += 4
		}
	}
}

// applyReverse inverts the forward blend in place:
//
//	original = (observed − alpha·logo) / (1−alpha)
//
// The divisor is clamped to reverseEpsilon and the recovered value to the
// legal intensity range, so near-unity opacity degrades gracefully
// instead of overflowing.
func applyReverse(img *image.NRGBA, m *AlphaMap, pos image.Point, logo float64) {
	footprint := image.Rect(pos.X, pos.Y, pos.X+m.w, pos.Y+m.h).Intersect(img.Bounds())
	for y := footprint.Min.Y; y < footprint.Max.Y; y++ {
		off := img.PixOffset(footprint.Min.X, y)
		my := y - pos.Y
		for x := footprint.Min.X; x < footprint.Max.X; x++ {
			alpha := m.At(x-pos.X, my)
			if alpha > 0 {
				denom := 1.0 - alpha
				if denom < reverseEpsilon {
					denom = reverseEpsilon
				}
				img.Pix[off] = unblendChannel(float64(img.Pix[off]), alpha, logo, denom)
				img.Pix[off+1] = unblendChannel(float64(img.Pix[off+1]), alpha, logo, denom)
				img.Pix[off+2] = unblendChannel(float64(img.Pix[off+2]), alpha, logo, denom)
			}
			off += 4
		}
	}
}

func blendChannel(v, alpha, logo float64) uint8 {
	return clampByte(alpha*logo + (1.0-alpha)*v)
}

func unblendChannel(v, alpha, logo, denom float64) uint8 {
	return clampByte((v - alpha*logo) / denom)
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
