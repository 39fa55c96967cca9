package detection

import (
	"image"
	"math"
)

// varianceEpsilon guards the NCC denominator: windows whose intensity
// variance falls below this are treated as structureless and score 0.
const varianceEpsilon = 1e-12

// NCC computes the zero-mean normalized cross-correlation of two equally
// shaped fields. The score is invariant to additive and multiplicative
// brightness differences and lies in [-1, 1]. Returns 0 when the fields
// differ in shape or either has zero variance.
func NCC(a, b *Field) float64 {
	if a.W != b.W || a.H != b.H || len(a.Pix) == 0 {
		return 0
	}
	n := float64(len(a.Pix))
	var sumA, sumB, sumAA, sumBB, sumAB float64
	for i, va := range a.Pix {
		vb := b.Pix[i]
		sumA += va
		sumB += vb
		sumAA += va * va
		sumBB += vb * vb
		sumAB += va * vb
	}
	num := sumAB - sumA*sumB/n
	den := (sumAA - sumA*sumA/n) * (sumBB - sumB*sumB/n)
	if den < varianceEpsilon {
		return 0
	}
	return num / math.Sqrt(den)
}

// MatchTemplate slides tmpl over img and returns the best zero-mean NCC
// score together with the top-left offset of the winning window
// (TM_CCOEFF_NORMED maximum-location semantics: ties resolve to the first
// position in raster-scan order of the correlation surface).
//
// The template must fit inside the image; callers skip scales that do
// not. A structureless (flat) template scores 0 everywhere.
//
// Per-window sums of the image are taken from integral images, so each
// position costs one template-sized dot product rather than three.
func MatchTemplate(img, tmpl *Field) (float64, image.Point) {
	outW := img.W - tmpl.W + 1
	outH := img.H - tmpl.H + 1
	if outW <= 0 || outH <= 0 {
		return 0, image.Point{}
	}

	// Zero-mean template. With a zero-sum template the per-window mean
	// term drops out of the correlation numerator.
	n := float64(len(tmpl.Pix))
	var tSum float64
	for _, v := range tmpl.Pix {
		tSum += v
	}
	tMean := tSum / n
	tDiff := make([]float64, len(tmpl.Pix))
	var tVar float64
	for i, v := range tmpl.Pix {
		d := v - tMean
		tDiff[i] = d
		tVar += d * d
	}
	if tVar < varianceEpsilon {
		return 0, image.Point{}
	}
	tNorm := math.Sqrt(tVar)

	sum, sumSq := integralImages(img)
	iw := img.W + 1

	best := math.Inf(-1)
	bestAt := image.Point{}

	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			var dot float64
			ti := 0
			for ty := 0; ty < tmpl.H; ty++ {
				row := img.Pix[(y+ty)*img.W+x:]
				for tx := 0; tx < tmpl.W; tx++ {
					dot += tDiff[ti] * row[tx]
					ti++
				}
			}

			x2, y2 := x+tmpl.W, y+tmpl.H
			winSum := sum[y2*iw+x2] - sum[y*iw+x2] - sum[y2*iw+x] + sum[y*iw+x]
			winSumSq := sumSq[y2*iw+x2] - sumSq[y*iw+x2] - sumSq[y2*iw+x] + sumSq[y*iw+x]
			winVar := winSumSq - winSum*winSum/n
			if winVar < varianceEpsilon {
				continue
			}

			score := dot / (tNorm * math.Sqrt(winVar))
			if score > best {
				best = score
				bestAt = image.Point{X: x, Y: y}
			}
		}
	}

	if math.IsInf(best, -1) {
		return 0, image.Point{}
	}
	return best, bestAt
}

// integralImages returns (W+1)x(H+1) summed-area tables of f and f².
func integralImages(f *Field) (sum, sumSq []float64) {
	iw := f.W + 1
	sum = make([]float64, iw*(f.H+1))
	sumSq = make([]float64, iw*(f.H+1))
	for y := 0; y < f.H; y++ {
		var rowSum, rowSumSq float64
		for x := 0; x < f.W; x++ {
			v := f.Pix[y*f.W+x]
			rowSum += v
			rowSumSq += v * v
			sum[(y+1)*iw+x+1] = sum[y*iw+x+1] + rowSum
			sumSq[(y+1)*iw+x+1] = sumSq[y*iw+x+1] + rowSumSq
		}
	}
	return sum, sumSq
}
