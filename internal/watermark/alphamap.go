package watermark

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/markfade/markfade/internal/detection"
)

// Canonical alpha map edge lengths.
const (
	alphaSizeSmall = 48
	alphaSizeLarge = 96
)

// AlphaMap is a per-pixel opacity mask in [0, 1] describing how strongly
// the overlay was blended at each position. The two canonical maps are
// built once at engine construction and never mutated; Resample produces
// temporary maps for non-canonical footprints.
type AlphaMap struct {
	w, h int
	pix  []float64
	gray *image.Gray // 8-bit mirror, the resampling source
}

// newAlphaMap derives an opacity mask from a reference background
// capture: per pixel, the mean of the R, G, B channels divided by the
// maximum channel intensity. The capture must show the overlay rendered
// on a black background.
func newAlphaMap(capture *image.NRGBA) *AlphaMap {
	b := capture.Bounds()
	m := &AlphaMap{
		w:    b.Dx(),
		h:    b.Dy(),
		pix:  make([]float64, b.Dx()*b.Dy()),
		gray: image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy())),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := capture.PixOffset(b.Min.X, y)
		for x := 0; x < m.w; x++ {
			mean := (float64(capture.Pix[off]) +
				float64(capture.Pix[off+1]) +
				float64(capture.Pix[off+2])) / 3.0
			m.pix[i] = mean / 255.0
			m.gray.Pix[i] = uint8(mean + 0.5)
			i++
			off += 4
		}
	}
	return m
}

// grayAlphaMap rebuilds an AlphaMap from an 8-bit grayscale plane, used
// after resampling.
func grayAlphaMap(gray *image.Gray) *AlphaMap {
	b := gray.Bounds()
	m := &AlphaMap{
		w:    b.Dx(),
		h:    b.Dy(),
		pix:  make([]float64, b.Dx()*b.Dy()),
		gray: gray,
	}
	for i := range m.pix {
		m.pix[i] = float64(gray.Pix[i]) / 255.0
	}
	return m
}

// Width returns the map width in pixels.
func (m *AlphaMap) Width() int { return m.w }

// Height returns the map height in pixels.
func (m *AlphaMap) Height() int { return m.h }

// At returns the opacity at (x, y). No bounds checking.
func (m *AlphaMap) At(x, y int) float64 {
	return m.pix[y*m.w+x]
}

// Resample interpolates the map to an arbitrary target resolution:
// bilinear when upscaling, area-averaging when downscaling. The result is
// a fresh map owned by the caller; the receiver is unchanged.
func (m *AlphaMap) Resample(width, height int) *AlphaMap {
	if width == m.w && height == m.h {
		return grayAlphaMap(m.gray)
	}
	filter := imaging.Box
	if width > m.w || height > m.h {
		filter = imaging.Linear
	}
	resized := imaging.Resize(m.gray, width, height, filter)

	gray := image.NewGray(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		gray.Pix[i] = resized.Pix[i*4] // resize output is NRGBA; R==G==B
	}
	return grayAlphaMap(gray)
}

// Field returns the map as a detection-plane copy.
func (m *AlphaMap) Field() *detection.Field {
	f := detection.NewField(m.w, m.h)
	copy(f.Pix, m.pix)
	return f
}

// TemplateAt implements detection.TemplateScaler by resampling the map to
// a square template of the requested edge length.
func (m *AlphaMap) TemplateAt(scale int) *detection.Field {
	if scale == m.w && scale == m.h {
		return m.Field()
	}
	return m.Resample(scale, scale).Field()
}
