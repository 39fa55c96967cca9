package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/markfade/markfade/internal/assets"
)

// testEngine builds an engine from the embedded reference captures.
func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{
		SmallCapture: assets.CaptureSmall,
		LargeCapture: assets.CaptureLarge,
	})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return e
}

// encodePNG renders a solid-gray square capture of edge length n.
func encodePNG(t *testing.T, n int, v uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestAlphaMapCanonicalSizes(t *testing.T) {
	e := testEngine(t)
	if m := e.AlphaMap(SizeSmall); m.Width() != 48 || m.Height() != 48 {
		t.Errorf("small map is %dx%d, want 48x48", m.Width(), m.Height())
	}
	if m := e.AlphaMap(SizeLarge); m.Width() != 96 || m.Height() != 96 {
		t.Errorf("large map is %dx%d, want 96x96", m.Width(), m.Height())
	}
}

func TestAlphaMapNormalization(t *testing.T) {
	e := testEngine(t)
	m := e.AlphaMap(SizeLarge)

	peak := 0.0
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			a := m.At(x, y)
			if a < 0 || a > 1 {
				t.Fatalf("alpha out of range at (%d,%d): %v", x, y, a)
			}
			if a > peak {
				peak = a
			}
		}
	}
	if peak < 0.5 {
		t.Errorf("peak opacity = %v, capture should carry substantial opacity", peak)
	}
	// Corners of the capture are background: fully transparent.
	if a := m.At(0, 0); a != 0 {
		t.Errorf("corner opacity = %v, want 0", a)
	}
}

func TestAlphaMapDerivedFromGrayCapture(t *testing.T) {
	// A uniform capture of intensity v yields alpha v/255 everywhere:
	// the opacity is the mean channel intensity over the maximum.
	e, err := New(Config{
		SmallCapture: encodePNG(t, 48, 102),
		LargeCapture: encodePNG(t, 96, 102),
	})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	want := 102.0 / 255.0
	if got := e.AlphaMap(SizeSmall).At(10, 10); got != want {
		t.Errorf("alpha = %v, want %v", got, want)
	}
}

func TestOffSizeCaptureIsResampled(t *testing.T) {
	e, err := New(Config{
		SmallCapture: encodePNG(t, 32, 128),
		LargeCapture: encodePNG(t, 200, 128),
	})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	if m := e.AlphaMap(SizeSmall); m.Width() != 48 {
		t.Errorf("off-size small capture not resampled: %d", m.Width())
	}
	if m := e.AlphaMap(SizeLarge); m.Width() != 96 {
		t.Errorf("off-size large capture not resampled: %d", m.Width())
	}
}

func TestConstructionFailures(t *testing.T) {
	valid := encodePNG(t, 48, 100)
	tests := []struct {
		name         string
		small, large []byte
	}{
		{"missing small", nil, valid},
		{"missing large", valid, nil},
		{"undecodable small", []byte("not an image"), valid},
		{"undecodable large", valid, []byte("not an image")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(Config{SmallCapture: tt.small, LargeCapture: tt.large}); err == nil {
				t.Error("construction succeeded with a bad capture")
			}
		})
	}
}

func TestResampleDimensionsAndRange(t *testing.T) {
	e := testEngine(t)
	large := e.AlphaMap(SizeLarge)

	for _, n := range []int{24, 48, 64, 96, 120} {
		m := large.Resample(n, n)
		if m.Width() != n || m.Height() != n {
			t.Errorf("Resample(%d) gave %dx%d", n, m.Width(), m.Height())
		}
		center := m.At(n/2, n/2)
		corner := m.At(0, 0)
		if center <= corner {
			t.Errorf("Resample(%d): center %v not above corner %v", n, center, corner)
		}
	}
}

func TestResampleLeavesSourceUnchanged(t *testing.T) {
	e := testEngine(t)
	large := e.AlphaMap(SizeLarge)
	before := large.At(48, 48)
	_ = large.Resample(30, 30)
	_ = large.Resample(130, 130)
	if large.At(48, 48) != before {
		t.Error("Resample mutated the source map")
	}
}

func TestTemplateAtMatchesScale(t *testing.T) {
	e := testEngine(t)
	for _, scale := range []int{16, 48, 96, 110} {
		f := e.AlphaMap(SizeLarge).TemplateAt(scale)
		if f.W != scale || f.H != scale {
			t.Errorf("TemplateAt(%d) gave %dx%d", scale, f.W, f.H)
		}
	}
}
