package detection

import (
	"image"
	"math"
	"testing"
)

// uniformNRGBA creates a solid gray test image.
func uniformNRGBA(w, h int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = v
		img.Pix[i+1] = v
		img.Pix[i+2] = v
		img.Pix[i+3] = 255
	}
	return img
}

// sparkAlpha is a synthetic four-point star opacity pattern, the same
// family of silhouette as the real overlay. Peak opacity ~0.85.
func sparkAlpha(x, y, n int) float64 {
	u := (float64(x)+0.5)/float64(n)*2 - 1
	v := (float64(y)+0.5)/float64(n)*2 - 1
	s := math.Pow(math.Abs(u), 2.0/3.0) + math.Pow(math.Abs(v), 2.0/3.0)
	if s >= 1 {
		return 0
	}
	return math.Pow(1-s, 0.8) * 0.85
}

// sparkField renders the spark pattern as an opacity template.
func sparkField(n int) *Field {
	f := NewField(n, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			f.Pix[y*n+x] = sparkAlpha(x, y, n)
		}
	}
	return f
}

// compositeSpark forward-blends a white spark of edge length n onto img
// at pos, the way the generator composites its overlay.
func compositeSpark(img *image.NRGBA, pos image.Point, n int) {
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a := sparkAlpha(x, y, n)
			off := img.PixOffset(pos.X+x, pos.Y+y)
			for c := 0; c < 3; c++ {
				v := float64(img.Pix[off+c])
				img.Pix[off+c] = uint8(a*255 + (1-a)*v + 0.5)
			}
		}
	}
}

func TestScoreRegionDetectsComposite(t *testing.T) {
	img := uniformNRGBA(300, 300, 80)
	pos := image.Point{X: 220, Y: 220}
	compositeSpark(img, pos, 48)

	region := image.Rect(pos.X, pos.Y, pos.X+48, pos.Y+48)
	s := ScoreRegion(img, region, sparkField(48), 48)

	if !s.Detected {
		t.Fatalf("composite overlay not detected: %+v", s)
	}
	if s.Confidence < 0.35 {
		t.Errorf("confidence = %v, want >= 0.35", s.Confidence)
	}
	if s.Spatial < 0.9 {
		t.Errorf("spatial score = %v, want > 0.9 for an exact composite", s.Spatial)
	}
}

func TestScoreRegionFlatImageCircuitBreaker(t *testing.T) {
	img := uniformNRGBA(300, 300, 128)
	region := image.Rect(220, 220, 268, 268)
	s := ScoreRegion(img, region, sparkField(48), 48)

	if s.Detected {
		t.Fatal("flat image reported as detected")
	}
	if s.Spatial >= 0.25 {
		t.Errorf("spatial score = %v, want < 0.25 on a flat image", s.Spatial)
	}
	if s.Gradient != 0 || s.Variance != 0 {
		t.Errorf("later stages ran after circuit breaker: gradient=%v variance=%v", s.Gradient, s.Variance)
	}
	if s.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", s.Confidence)
	}
}

func TestScoreRegionOutOfBounds(t *testing.T) {
	img := uniformNRGBA(100, 100, 80)
	s := ScoreRegion(img, image.Rect(200, 200, 248, 248), sparkField(48), 48)
	if s != (Score{}) {
		t.Errorf("out-of-bounds region gave %+v, want zero score", s)
	}
}

func TestScoreRegionPartialClampDoesNotPanic(t *testing.T) {
	img := uniformNRGBA(100, 100, 80)
	s := ScoreRegion(img, image.Rect(80, 80, 128, 128), sparkField(48), 48)
	if s.Detected {
		t.Errorf("flat partial region reported as detected: %+v", s)
	}
}

func TestScoreRegionNilImage(t *testing.T) {
	if s := ScoreRegion(nil, image.Rect(0, 0, 48, 48), sparkField(48), 48); s != (Score{}) {
		t.Errorf("nil image gave %+v, want zero score", s)
	}
}

func TestScoreRegionVarianceSkippedAtTopEdge(t *testing.T) {
	img := uniformNRGBA(200, 200, 80)
	pos := image.Point{X: 10, Y: 0}
	compositeSpark(img, pos, 48)

	// No reference strip exists above y=0; stage 3 must stay zero while
	// the other stages still carry the detection.
	s := ScoreRegion(img, image.Rect(pos.X, pos.Y, pos.X+48, pos.Y+48), sparkField(48), 48)
	if s.Variance != 0 {
		t.Errorf("variance score = %v, want 0 with no reference strip", s.Variance)
	}
	if !s.Detected {
		t.Errorf("overlay at top edge not detected: %+v", s)
	}
}
