package detection

import (
	"image"
	"math"
	"sort"
	"sync/atomic"
)

// Guided search constants.
const (
	// minWindowSide rejects search windows too small to hold any
	// meaningful template.
	minWindowSide = 8

	// minTemplateScale is the smallest candidate edge length considered.
	minTemplateScale = 16

	// referenceScale is the canonical template size the size-bias
	// correction normalizes against.
	referenceScale = 96

	coarseScaleStep = 8
	topK            = 5

	// candidateFloor is the minimum size-adjusted score for a location
	// to be considered at all.
	candidateFloor = 0.08

	fineScaleStep  = 2
	fineScaleRange = 10
)

// TemplateScaler supplies the correlation template at a requested edge
// length. Implementations resample a canonical opacity map per call; the
// returned field is owned by the search and discarded after use.
type TemplateScaler interface {
	TemplateAt(scale int) *Field
}

// GuidedResult reports the outcome of a guided multi-scale search.
type GuidedResult struct {
	// Found reports whether any location beat the candidate floor.
	Found bool `json:"found"`

	// Confidence is the winning size-adjusted NCC score.
	Confidence float64 `json:"confidence"`

	// RawNCC is the winning score before size-bias correction.
	RawNCC float64 `json:"raw_ncc"`

	// Match is the winning rectangle in image-absolute coordinates.
	Match image.Rectangle `json:"match_rect"`

	// Scale is the winning template edge length in pixels.
	Scale int `json:"detected_scale"`

	// ScalesSearched and TotalScales report coarse-phase progress, also
	// meaningful after early cancellation.
	ScalesSearched int `json:"scales_searched"`
	TotalScales    int `json:"total_scales"`

	// Cancelled reports that the cancellation flag stopped the search
	// before the scale list was exhausted.
	Cancelled bool `json:"was_cancelled"`
}

type guidedCandidate struct {
	pos   image.Point // window-relative top-left
	scale int
	raw   float64
	adj   float64
}

// sizeAdjusted applies the size-bias correction to a raw NCC score.
//
// NCC inherently favors small templates: a 24x24 patch finds a strong
// match almost anywhere inside a real overlay. Weighting by
// sqrt(scale/96), capped at 1, makes a 96px match at 0.30 beat a 24px
// match at 0.58.
func sizeAdjusted(raw float64, scale int) float64 {
	w := math.Sqrt(float64(scale) / referenceScale)
	if w > 1 {
		w = 1
	}
	return raw * w
}

// GuidedSearch locates an overlay of unknown scale and position inside
// window, correlating templates from scaler against the grayscale window
// content.
//
// The window is clamped to the image bounds and rejected (empty result)
// if under 8x8 afterwards. minScale is raised to 16 and maxScale lowered
// to the window's smaller side; an inverted range yields an empty result.
//
// The search runs in two phases: a coarse scan in 8px scale steps (with
// the canonical 48 and 96 sizes inserted when in range) keeping the top
// five size-adjusted candidates, then a fine rescan of ±10px at 2px steps
// around each. cancel, when non-nil, is polled between coarse scales and
// before each fine candidate, never inside a correlation pass, so
// cancellation latency is bounded by one pass.
func GuidedSearch(img *image.NRGBA, window image.Rectangle, scaler TemplateScaler, cancel *atomic.Bool, minScale, maxScale int) GuidedResult {
	var res GuidedResult
	if img == nil || window.Dx() < minWindowSide || window.Dy() < minWindowSide {
		return res
	}

	search := window.Intersect(img.Bounds())
	if search.Dx() < minWindowSide || search.Dy() < minWindowSide {
		return res
	}

	if minScale < minTemplateScale {
		minScale = minTemplateScale
	}
	if side := search.Dx(); maxScale > side {
		maxScale = side
	}
	if side := search.Dy(); maxScale > side {
		maxScale = side
	}
	if minScale > maxScale {
		return res
	}

	gray := GrayField(img, search)

	// Coarse scale list: fixed steps plus the canonical sizes, unless a
	// listed scale already sits within 2px of them.
	var scales []int
	for s := minScale; s <= maxScale; s += coarseScaleStep {
		scales = append(scales, s)
	}
	for _, std := range []int{48, 96} {
		if std < minScale || std > maxScale {
			continue
		}
		present := false
		for _, s := range scales {
			if abs(s-std) <= 2 {
				present = true
				break
			}
		}
		if !present {
			scales = append(scales, std)
		}
	}
	sort.Ints(scales)
	res.TotalScales = len(scales)

	// Phase 1: coarse scan, keeping the top-K candidates by adjusted
	// score.
	var candidates []guidedCandidate
	for _, scale := range scales {
		if cancel != nil && cancel.Load() {
			res.Cancelled = true
			break
		}
		if scale > gray.W || scale > gray.H {
			res.ScalesSearched++
			continue
		}

		raw, loc := MatchTemplate(gray, scaler.TemplateAt(scale))
		res.ScalesSearched++

		adj := sizeAdjusted(raw, scale)
		if adj <= candidateFloor {
			continue
		}
		c := guidedCandidate{pos: loc, scale: scale, raw: raw, adj: adj}
		if len(candidates) < topK {
			candidates = append(candidates, c)
		} else if adj > candidates[len(candidates)-1].adj {
			candidates[len(candidates)-1] = c
		} else {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].adj > candidates[j].adj
		})
	}

	if len(candidates) == 0 {
		return res
	}

	// Phase 2: fine refinement around each surviving candidate.
	best := guidedCandidate{adj: -1}
	for _, c := range candidates {
		if cancel != nil && cancel.Load() {
			res.Cancelled = true
			break
		}

		lo := c.scale - fineScaleRange
		if lo < minScale {
			lo = minScale
		}
		hi := c.scale + fineScaleRange
		if hi > maxScale {
			hi = maxScale
		}
		for s := lo; s <= hi; s += fineScaleStep {
			if s > gray.W || s > gray.H {
				continue
			}
			raw, loc := MatchTemplate(gray, scaler.TemplateAt(s))
			if adj := sizeAdjusted(raw, s); adj > best.adj {
				best = guidedCandidate{pos: loc, scale: s, raw: raw, adj: adj}
			}
		}
	}

	if best.adj > candidateFloor {
		res.Found = true
		res.Confidence = best.adj
		res.RawNCC = best.raw
		res.Scale = best.scale
		res.Match = image.Rect(
			search.Min.X+best.pos.X,
			search.Min.Y+best.pos.Y,
			search.Min.X+best.pos.X+best.scale,
			search.Min.Y+best.pos.Y+best.scale,
		)
	}
	return res
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
