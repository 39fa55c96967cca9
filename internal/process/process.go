// Package process orchestrates load -> detect -> blend -> save for single
// files and sequential batches. Every per-file failure is contained in
// that file's Result; a batch always runs to completion.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markfade/markfade/internal/imaging"
	"github.com/markfade/markfade/internal/watermark"
)

// DefaultDetectionThreshold is the confidence below which a removal pass
// skips a file as unwatermarked.
const DefaultDetectionThreshold = 0.35

// Options controls a processing run.
type Options struct {
	// Remove selects removal (reverse blend); false selects Add.
	Remove bool

	// Size forces a watermark size class; SizeAuto derives it per image.
	Size watermark.SizeClass

	// UseDetection runs detection before removal and skips files whose
	// confidence stays below DetectionThreshold. Ignored when adding.
	UseDetection bool

	// DetectionThreshold overrides the skip threshold; zero selects
	// DefaultDetectionThreshold.
	DetectionThreshold float64

	// Save carries the per-format encoding parameters.
	Save imaging.SaveOptions
}

// DefaultOptions is a detection-gated removal with the reference tool's
// output settings.
func DefaultOptions() Options {
	return Options{
		Remove:             true,
		UseDetection:       true,
		DetectionThreshold: DefaultDetectionThreshold,
		Save:               imaging.DefaultSaveOptions(),
	}
}

// Result is the outcome of processing one file.
type Result struct {
	// Success reports that the file was handled without error; a skipped
	// file is a success.
	Success bool

	// Skipped reports that detection found no watermark and the file was
	// left untouched.
	Skipped bool

	// Confidence is the detection confidence, when detection ran.
	Confidence float64

	// Message describes the outcome for user-facing summaries.
	Message string
}

// Summary aggregates batch outcomes.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// File processes a single image: load, optionally detect (removal only),
// blend in place, and save to outPath. inPath and outPath may be equal
// for in-place editing. All failures are reported through the Result.
func File(engine *watermark.Engine, log zerolog.Logger, inPath, outPath string, opts Options) Result {
	img, err := imaging.Load(inPath)
	if err != nil {
		log.Error().Err(err).Str("file", inPath).Msg("failed to load image")
		return Result{Message: fmt.Sprintf("failed to load image: %v", err)}
	}

	b := img.Bounds()
	log.Info().
		Str("file", filepath.Base(inPath)).
		Int("width", b.Dx()).Int("height", b.Dy()).
		Msg("processing")

	var res Result
	if opts.UseDetection && opts.Remove {
		threshold := opts.DetectionThreshold
		if threshold == 0 {
			threshold = DefaultDetectionThreshold
		}
		det := engine.Detect(img, opts.Size)
		res.Confidence = det.Confidence

		if !det.Detected && det.Confidence < threshold {
			res.Success = true
			res.Skipped = true
			res.Message = fmt.Sprintf("no watermark detected (%.0f%%), skipped", det.Confidence*100)
			log.Info().
				Str("file", filepath.Base(inPath)).
				Float64("spatial", det.SpatialScore).
				Float64("gradient", det.GradientScore).
				Float64("variance", det.VarianceScore).
				Msg(res.Message)
			return res
		}
		log.Info().
			Float64("confidence", det.Confidence).
			Msg("watermark detected, processing")
	}

	if opts.Remove {
		err = engine.Remove(img, opts.Size)
	} else {
		err = engine.Add(img, opts.Size)
	}
	if err != nil {
		log.Error().Err(err).Str("file", inPath).Msg("blend failed")
		return Result{Confidence: res.Confidence, Message: fmt.Sprintf("blend failed: %v", err)}
	}

	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("failed to create output directory")
			return Result{Confidence: res.Confidence, Message: fmt.Sprintf("failed to create output directory: %v", err)}
		}
	}
	if err := imaging.Save(img, outPath, opts.Save); err != nil {
		log.Error().Err(err).Str("file", outPath).Msg("failed to save image")
		return Result{Confidence: res.Confidence, Message: fmt.Sprintf("failed to save image: %v", err)}
	}

	res.Success = true
	if opts.Remove {
		res.Message = "watermark removed"
	} else {
		res.Message = "watermark added"
	}
	log.Info().Str("file", filepath.Base(outPath)).Msg("saved")
	return res
}

// Batch processes every supported image in inDir sequentially, writing
// results under outDir with unchanged file names. Per-file failures are
// counted, never propagated; the returned error covers only the
// directory walk itself.
func Batch(engine *watermark.Engine, log zerolog.Logger, inDir, outDir string, opts Options) (Summary, error) {
	var sum Summary

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return sum, fmt.Errorf("failed to read input directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return sum, fmt.Errorf("failed to create output directory: %w", err)
	}

	log.Info().Str("dir", inDir).Msg("batch processing directory")

	for _, entry := range entries {
		if entry.IsDir() || !supportedInput(entry.Name()) {
			continue
		}
		in := filepath.Join(inDir, entry.Name())
		out := filepath.Join(outDir, entry.Name())

		res := File(engine, log, in, out, opts)
		switch {
		case res.Skipped:
			sum.Skipped++
			sum.Succeeded++
		case res.Success:
			sum.Succeeded++
		default:
			sum.Failed++
		}
	}
	return sum, nil
}

func supportedInput(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return true
	}
	return false
}
