package watermark

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/markfade/markfade/internal/detection"
	imagingio "github.com/markfade/markfade/internal/imaging"
)

// DefaultLogoValue is the overlay's rendered intensity: the generator
// composites a white logo.
const DefaultLogoValue = 255.0

// ErrEmptyImage is returned by blend operations handed a nil or empty
// pixel buffer.
var ErrEmptyImage = errors.New("empty image provided")

// DetectionResult reports a fixed-position detection outcome. A
// non-detection is an ordinary result, never an error.
type DetectionResult struct {
	// Detected reports whether the fused confidence reached the
	// detection threshold.
	Detected bool `json:"detected"`

	// Confidence is the fused score in [0, 1].
	Confidence float64 `json:"confidence"`

	// Region is the candidate rectangle that was scored.
	Region image.Rectangle `json:"region"`

	// Size is the size class the candidate geometry was derived from.
	Size SizeClass `json:"size"`

	// Per-stage scores, for diagnostics.
	SpatialScore  float64 `json:"spatial_score"`
	GradientScore float64 `json:"gradient_score"`
	VarianceScore float64 `json:"variance_score"`
}

// Config configures engine construction.
type Config struct {
	// SmallCapture and LargeCapture are the encoded reference background
	// captures (conceptually 48x48 and 96x96; off-size captures are
	// resampled with a warning). Both are required.
	SmallCapture []byte
	LargeCapture []byte

	// LogoValue is the overlay intensity; zero selects DefaultLogoValue.
	LogoValue float64

	// Logger receives the engine's diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// Engine holds the two canonical alpha maps and performs all detection
// and blending operations. Construct one with New and share it; the maps
// are immutable after construction.
type Engine struct {
	small *AlphaMap
	large *AlphaMap
	logo  float64
	log   zerolog.Logger
}

// New builds an engine from in-memory reference captures. Construction
// fails if either capture cannot be decoded; no partially usable engine
// is ever returned.
func New(cfg Config) (*Engine, error) {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	small, err := decodeCapture(cfg.SmallCapture, alphaSizeSmall, log)
	if err != nil {
		return nil, fmt.Errorf("small background capture: %w", err)
	}
	large, err := decodeCapture(cfg.LargeCapture, alphaSizeLarge, log)
	if err != nil {
		return nil, fmt.Errorf("large background capture: %w", err)
	}

	logo := cfg.LogoValue
	if logo == 0 {
		logo = DefaultLogoValue
	}

	e := &Engine{
		small: newAlphaMap(small),
		large: newAlphaMap(large),
		logo:  logo,
		log:   log,
	}
	e.log.Debug().
		Int("small", e.small.Width()).
		Int("large", e.large.Width()).
		Float64("logo_value", e.logo).
		Msg("alpha maps built from background captures")
	return e, nil
}

// NewFromFiles builds an engine from reference capture files. Any
// SmallCapture/LargeCapture bytes already present in cfg are replaced.
func NewFromFiles(smallPath, largePath string, cfg Config) (*Engine, error) {
	small, err := os.ReadFile(smallPath)
	if err != nil {
		return nil, fmt.Errorf("small background capture: %w", err)
	}
	large, err := os.ReadFile(largePath)
	if err != nil {
		return nil, fmt.Errorf("large background capture: %w", err)
	}
	cfg.SmallCapture = small
	cfg.LargeCapture = large
	return New(cfg)
}

// decodeCapture decodes a reference capture and area-resamples it to the
// canonical edge length when it arrives at any other resolution.
func decodeCapture(data []byte, size int, log zerolog.Logger) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, errors.New("no capture data")
	}
	img, err := imagingio.Decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		log.Warn().
			Int("width", b.Dx()).Int("height", b.Dy()).Int("expected", size).
			Msg("capture is off-size, resampling")
		img = imaging.Resize(img, size, size, imaging.Box)
	}
	return img, nil
}

// alphaMapFor returns the canonical map for a resolved size class.
func (e *Engine) alphaMapFor(class SizeClass) *AlphaMap {
	if class == SizeLarge {
		return e.large
	}
	return e.small
}

// AlphaMap exposes the canonical map for a size class, for callers that
// build their own resampled copies. The map must not be mutated.
func (e *Engine) AlphaMap(class SizeClass) *AlphaMap {
	return e.alphaMapFor(class)
}

// Detect scores the canonical placement for the presence of the overlay.
// size may be SizeAuto to derive the class from the image dimensions.
// An empty image yields the zero result; detection never errors.
func (e *Engine) Detect(img *image.NRGBA, size SizeClass) DetectionResult {
	var result DetectionResult
	if emptyImage(img) {
		return result
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	class := resolve(size, w, h)
	placement := PlacementOf(class)
	pos := placement.TopLeft(w, h)
	m := e.alphaMapFor(class)

	result.Size = class
	result.Region = image.Rect(pos.X, pos.Y, pos.X+m.Width(), pos.Y+m.Height())

	score := detection.ScoreRegion(img, result.Region, m.Field(), placement.LogoSize)
	result.Detected = score.Detected
	result.Confidence = score.Confidence
	result.SpatialScore = score.Spatial
	result.GradientScore = score.Gradient
	result.VarianceScore = score.Variance

	e.log.Debug().
		Float64("spatial", score.Spatial).
		Float64("gradient", score.Gradient).
		Float64("variance", score.Variance).
		Float64("confidence", score.Confidence).
		Bool("detected", score.Detected).
		Str("size", class.String()).
		Msg("fixed-position detection")
	return result
}

// Add composites the overlay onto img in place at the canonical placement
// for the resolved size class.
func (e *Engine) Add(img *image.NRGBA, size SizeClass) error {
	return e.blend(img, size, false)
}

// Remove inverts the overlay blend in place at the canonical placement
// for the resolved size class.
func (e *Engine) Remove(img *image.NRGBA, size SizeClass) error {
	return e.blend(img, size, true)
}

func (e *Engine) blend(img *image.NRGBA, size SizeClass, remove bool) error {
	if emptyImage(img) {
		return ErrEmptyImage
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	class := resolve(size, w, h)
	pos := PlacementOf(class).TopLeft(w, h)
	m := e.alphaMapFor(class)

	op := "add"
	if remove {
		op = "remove"
	}
	e.log.Debug().
		Int("x", pos.X).Int("y", pos.Y).
		Int("logo", m.Width()).
		Str("size", class.String()).
		Msgf("%s watermark", op)

	if remove {
		applyReverse(img, m, pos, e.logo)
	} else {
		applyForward(img, m, pos, e.logo)
	}
	return nil
}

// AddRegion composites the overlay onto an arbitrary rectangle. Regions
// matching a canonical footprint use that map directly; any other size
// blends through a temporary resampled map.
func (e *Engine) AddRegion(img *image.NRGBA, region image.Rectangle) error {
	return e.blendRegion(img, region, false)
}

// RemoveRegion inverts the overlay blend on an arbitrary rectangle, with
// the same canonical fast paths as AddRegion.
func (e *Engine) RemoveRegion(img *image.NRGBA, region image.Rectangle) error {
	return e.blendRegion(img, region, true)
}

func (e *Engine) blendRegion(img *image.NRGBA, region image.Rectangle, remove bool) error {
	if emptyImage(img) {
		return ErrEmptyImage
	}
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return fmt.Errorf("degenerate region %v", region)
	}

	var m *AlphaMap
	switch {
	case region.Dx() == alphaSizeSmall && region.Dy() == alphaSizeSmall:
		m = e.small
	case region.Dx() == alphaSizeLarge && region.Dy() == alphaSizeLarge:
		m = e.large
	default:
		// The large map is the higher-resolution interpolation source.
		m = e.large.Resample(region.Dx(), region.Dy())
		e.log.Debug().
			Int("width", region.Dx()).Int("height", region.Dy()).
			Msg("resampled alpha map for custom region")
	}

	if remove {
		applyReverse(img, m, region.Min, e.logo)
	} else {
		applyForward(img, m, region.Min, e.logo)
	}
	return nil
}

// GuidedDetect searches window for an overlay of unknown scale and
// position, resampling the large canonical map as the correlation
// template. cancel may be nil; when non-nil it is polled between scales
// and candidates, so cancellation latency is bounded by one correlation
// pass. An empty image yields the empty result.
func (e *Engine) GuidedDetect(img *image.NRGBA, window image.Rectangle, cancel *atomic.Bool, minScale, maxScale int) detection.GuidedResult {
	if emptyImage(img) {
		return detection.GuidedResult{}
	}
	res := detection.GuidedSearch(img, window, e.large, cancel, minScale, maxScale)

	ev := e.log.Debug().
		Bool("found", res.Found).
		Int("scales_searched", res.ScalesSearched).
		Int("total_scales", res.TotalScales).
		Bool("cancelled", res.Cancelled)
	if res.Found {
		ev = ev.
			Int("x", res.Match.Min.X).Int("y", res.Match.Min.Y).
			Int("scale", res.Scale).
			Float64("raw_ncc", res.RawNCC).
			Float64("confidence", res.Confidence)
	}
	ev.Msg("guided detection")
	return res
}

func emptyImage(img *image.NRGBA) bool {
	return img == nil || img.Bounds().Empty()
}
