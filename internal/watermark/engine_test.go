package watermark

import (
	"image"
	"math"
	"sync/atomic"
	"testing"
)

func uniformImage(w, h int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = v
		img.Pix[i+1] = v
		img.Pix[i+2] = v
		img.Pix[i+3] = 255
	}
	return img
}

func TestDetectAfterAdd(t *testing.T) {
	e := testEngine(t)
	img := uniformImage(2000, 2000, 80)

	if err := e.Add(img, SizeAuto); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	res := e.Detect(img, SizeAuto)

	if !res.Detected {
		t.Fatalf("freshly added overlay not detected: %+v", res)
	}
	if res.Confidence < 0.35 {
		t.Errorf("confidence = %v, want >= 0.35", res.Confidence)
	}
	if res.Size != SizeLarge {
		t.Errorf("size class = %v, want large on a 2000px image", res.Size)
	}
	want := image.Rect(1840, 1840, 1936, 1936)
	if res.Region != want {
		t.Errorf("region = %v, want %v", res.Region, want)
	}
}

func TestDetectMissesShiftedOverlay(t *testing.T) {
	e := testEngine(t)
	img := uniformImage(2000, 2000, 80)

	// The overlay sits well away from the canonical corner placement, so
	// the fixed-position check must come up empty.
	if err := e.AddRegion(img, image.Rect(1600, 1600, 1696, 1696)); err != nil {
		t.Fatalf("add region failed: %v", err)
	}
	if res := e.Detect(img, SizeAuto); res.Detected {
		t.Errorf("shifted overlay reported at the canonical placement: %+v", res)
	}
}

func TestDetectFlatImage(t *testing.T) {
	e := testEngine(t)
	res := e.Detect(uniformImage(1300, 1300, 128), SizeAuto)
	if res.Detected {
		t.Fatalf("flat image reported as watermarked: %+v", res)
	}
	if res.GradientScore != 0 || res.VarianceScore != 0 {
		t.Errorf("later stages ran on a flat region: %+v", res)
	}
}

func TestDetectForcedSizeClass(t *testing.T) {
	e := testEngine(t)
	img := uniformImage(300, 300, 80)
	if err := e.Add(img, SizeAuto); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	res := e.Detect(img, SizeSmall)
	if !res.Detected || res.Size != SizeSmall {
		t.Errorf("forced small detection failed: %+v", res)
	}
	// Forcing the wrong class scores a region the overlay is not in.
	if res := e.Detect(img, SizeLarge); res.Detected {
		t.Errorf("forced large class detected a small overlay: %+v", res)
	}
}

func TestDetectEmptyImage(t *testing.T) {
	e := testEngine(t)
	if res := e.Detect(nil, SizeAuto); res != (DetectionResult{}) {
		t.Errorf("Detect(nil) = %+v, want zero result", res)
	}
}

func TestGuidedDetectRecoversPlacement(t *testing.T) {
	e := testEngine(t)
	img := uniformImage(320, 320, 80)

	region := image.Rect(150, 150, 246, 246)
	if err := e.AddRegion(img, region); err != nil {
		t.Fatalf("add region failed: %v", err)
	}

	res := e.GuidedDetect(img, image.Rect(120, 120, 320, 320), nil, 16, 120)
	if !res.Found {
		t.Fatalf("overlay not found: %+v", res)
	}
	if d := res.Scale - 96; d < -4 || d > 4 {
		t.Errorf("scale = %d, want 96 +/- 4", res.Scale)
	}
	if dx := res.Match.Min.X - 150; dx < -2 || dx > 2 {
		t.Errorf("match x = %d, want 150 +/- 2", res.Match.Min.X)
	}
	if dy := res.Match.Min.Y - 150; dy < -2 || dy > 2 {
		t.Errorf("match y = %d, want 150 +/- 2", res.Match.Min.Y)
	}
}

func TestGuidedDetectCancellation(t *testing.T) {
	e := testEngine(t)
	img := uniformImage(320, 320, 80)
	if err := e.AddRegion(img, image.Rect(150, 150, 246, 246)); err != nil {
		t.Fatalf("add region failed: %v", err)
	}

	var cancel atomic.Bool
	cancel.Store(true)

	res := e.GuidedDetect(img, image.Rect(120, 120, 320, 320), &cancel, 16, 120)
	if !res.Cancelled {
		t.Error("pre-set cancel flag not honored")
	}
	if res.Found {
		t.Errorf("cancelled search reported a find: %+v", res)
	}
}

func TestGuidedDetectEmptyImage(t *testing.T) {
	e := testEngine(t)
	res := e.GuidedDetect(nil, image.Rect(0, 0, 100, 100), nil, 16, 96)
	if res.Found || res.TotalScales != 0 {
		t.Errorf("GuidedDetect(nil) = %+v, want zero result", res)
	}
}

func TestCustomLogoValue(t *testing.T) {
	e, err := New(Config{
		SmallCapture: encodePNG(t, 48, 128),
		LargeCapture: encodePNG(t, 96, 128),
		LogoValue:    200,
	})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}

	img := uniformImage(300, 300, 0)
	if err := e.Add(img, SizeAuto); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	// alpha is uniformly 128/255; on black the blend is alpha * 200.
	off := img.PixOffset(240, 240)
	want := uint8(math.Round(128.0 / 255.0 * 200))
	if img.Pix[off] != want {
		t.Errorf("blended value = %d, want %d for logo value 200", img.Pix[off], want)
	}
}
