package detection

import "image"

// Stage thresholds and fusion weights for the fixed-position scorer.
const (
	// spatialThreshold is the stage-1 circuit breaker: below this the
	// candidate has no structural similarity to the overlay and the
	// remaining stages are skipped.
	spatialThreshold = 0.25

	// detectionThreshold is the fused-confidence cutoff for a positive.
	detectionThreshold = 0.35

	spatialWeight  = 0.50
	gradientWeight = 0.30
	varianceWeight = 0.20

	// varianceMinRefHeight and varianceMinRefStd gate stage 3: the
	// reference strip above the candidate must be tall enough and
	// textured enough (std in 8-bit intensity units) to be meaningful.
	varianceMinRefHeight = 8
	varianceMinRefStd    = 5.0
)

// Score is the outcome of the three-stage fixed-position scorer.
//
// A zero Score (all fields zero, Detected false) is the advisory
// "nothing there" answer used for degenerate geometry and empty input.
type Score struct {
	// Detected reports whether the fused confidence reached the
	// detection threshold.
	Detected bool `json:"detected"`

	// Confidence is the fused score, clamped to [0, 1].
	Confidence float64 `json:"confidence"`

	// Spatial is the stage-1 NCC between the candidate region and the
	// opacity template, in [-1, 1].
	Spatial float64 `json:"spatial_score"`

	// Gradient is the stage-2 NCC between the Sobel gradient magnitudes
	// of candidate and template. Zero when stage 1 rejected.
	Gradient float64 `json:"gradient_score"`

	// Variance is the stage-3 texture dampening score in [0, 1]. Zero
	// when the reference strip is unusable or stage 1 rejected.
	Variance float64 `json:"variance_score"`
}

// ScoreRegion scores the hypothesis that the overlay described by tmpl
// occupies region within img.
//
// The region is clamped to the image bounds and the template cropped to
// the overlapping part; a region with no overlap yields the zero Score.
// logoSize caps the height of the stage-3 reference strip sampled
// immediately above the candidate.
func ScoreRegion(img *image.NRGBA, region image.Rectangle, tmpl *Field, logoSize int) Score {
	var s Score
	if img == nil {
		return s
	}

	clamped := region.Intersect(img.Bounds())
	if clamped.Empty() {
		return s
	}

	gray := GrayField(img, clamped)
	alpha := tmpl.Sub(image.Rect(
		clamped.Min.X-region.Min.X,
		clamped.Min.Y-region.Min.Y,
		clamped.Max.X-region.Min.X,
		clamped.Max.Y-region.Min.Y,
	))

	// Stage 1: spatial structural correlation. The overlay's silhouette
	// must correlate with the opacity map before anything else matters.
	s.Spatial = NCC(gray, alpha)
	if s.Spatial < spatialThreshold {
		s.Confidence = clampFloat(s.Spatial*0.5, 0, 1)
		return s
	}

	// Stage 2: gradient-domain correlation (edge signature).
	s.Gradient = NCC(SobelMagnitude(gray), SobelMagnitude(alpha))

	// Stage 3: texture variance dampening against the strip directly
	// above the candidate.
	refH := clamped.Min.Y
	if refH > logoSize {
		refH = logoSize
	}
	if refH > varianceMinRefHeight {
		ref := GrayField(img, image.Rect(clamped.Min.X, clamped.Min.Y-refH, clamped.Max.X, clamped.Min.Y))
		_, refStd := MeanStdDev(ref)
		_, wmStd := MeanStdDev(gray)
		// Thresholds are in 8-bit intensity units; fields are [0, 1].
		if refStd*255.0 > varianceMinRefStd {
			s.Variance = clampFloat(1.0-wmStd/refStd, 0, 1)
		}
	}

	s.Confidence = clampFloat(
		spatialWeight*s.Spatial+gradientWeight*s.Gradient+varianceWeight*s.Variance, 0, 1)
	s.Detected = s.Confidence >= detectionThreshold
	return s
}
