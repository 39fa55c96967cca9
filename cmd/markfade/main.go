// Command markfade detects, removes and adds the fixed-style generator
// watermark on images.
//
// Two invocation styles, mirroring drag-and-drop use:
//
//	markfade photo.jpg other.png          in-place removal, no flags
//	markfade -i in.jpg -o out.jpg         explicit mode with options
//
// With -i pointing at a directory, every supported image in it is
// processed into the -o directory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/markfade/markfade/internal/assets"
	"github.com/markfade/markfade/internal/imaging"
	"github.com/markfade/markfade/internal/process"
	"github.com/markfade/markfade/internal/watermark"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		inPath      string
		outPath     string
		addMode     bool
		detectOnly  bool
		forceSmall  bool
		forceLarge  bool
		noDetect    bool
		threshold   float64
		bgSmall     string
		bgLarge     string
		verbose     bool
		quiet       bool
		showVersion bool
	)

	flag.StringVar(&inPath, "i", "", "input image file or directory")
	flag.StringVar(&outPath, "o", "", "output image file or directory")
	flag.BoolVar(&addMode, "add", false, "add the watermark instead of removing it")
	flag.BoolVar(&detectOnly, "detect", false, "only report detection confidence, write nothing")
	flag.BoolVar(&forceSmall, "force-small", false, "force the 48x48 watermark regardless of image size")
	flag.BoolVar(&forceLarge, "force-large", false, "force the 96x96 watermark regardless of image size")
	flag.BoolVar(&noDetect, "no-detect", false, "remove without the detection gate")
	flag.Float64Var(&threshold, "threshold", process.DefaultDetectionThreshold, "detection confidence below which removal skips a file")
	flag.StringVar(&bgSmall, "bg-small", "", "override the embedded 48x48 background capture")
	flag.StringVar(&bgLarge, "bg-large", "", "override the embedded 96x96 background capture")
	flag.BoolVar(&verbose, "v", false, "enable debug output")
	flag.BoolVar(&quiet, "q", false, "suppress all output except errors")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("markfade %s (%s)\n", Version, GitCommit)
		return 0
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.ErrorLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if forceSmall && forceLarge {
		log.Error().Msg("cannot combine -force-small and -force-large")
		return 1
	}

	engine, err := buildEngine(bgSmall, bgLarge, &log)
	if err != nil {
		log.Error().Err(err).Msg("fatal: engine construction failed")
		return 1
	}

	opts := process.DefaultOptions()
	opts.Remove = !addMode
	opts.UseDetection = !noDetect
	opts.DetectionThreshold = threshold
	if forceSmall {
		opts.Size = watermark.SizeSmall
	}
	if forceLarge {
		opts.Size = watermark.SizeLarge
	}

	// Simple mode: bare file arguments, removed in place.
	if inPath == "" {
		files := flag.Args()
		if len(files) == 0 {
			usage()
			return 1
		}
		var failed int
		for _, f := range files {
			if detectOnly {
				if !reportDetection(engine, log, f, opts.Size) {
					failed++
				}
				continue
			}
			if res := process.File(engine, log, f, f, opts); !res.Success {
				failed++
			}
		}
		if failed > 0 {
			return 1
		}
		return 0
	}

	if detectOnly {
		if reportDetection(engine, log, inPath, opts.Size) {
			return 0
		}
		return 1
	}

	if outPath == "" {
		log.Error().Msg("-o is required with -i")
		return 1
	}

	info, err := os.Stat(inPath)
	if err != nil {
		log.Error().Err(err).Str("path", inPath).Msg("input not found")
		return 1
	}

	if info.IsDir() {
		sum, err := process.Batch(engine, log, inPath, outPath, opts)
		if err != nil {
			log.Error().Err(err).Msg("batch failed")
			return 1
		}
		log.Info().
			Int("succeeded", sum.Succeeded).
			Int("skipped", sum.Skipped).
			Int("failed", sum.Failed).
			Msg("batch completed")
		if sum.Failed > 0 {
			return 1
		}
		return 0
	}

	if res := process.File(engine, log, inPath, outPath, opts); !res.Success {
		return 1
	}
	return 0
}

func buildEngine(bgSmall, bgLarge string, log *zerolog.Logger) (*watermark.Engine, error) {
	cfg := watermark.Config{
		SmallCapture: assets.CaptureSmall,
		LargeCapture: assets.CaptureLarge,
		Logger:       log,
	}
	if bgSmall != "" || bgLarge != "" {
		if bgSmall == "" || bgLarge == "" {
			return nil, fmt.Errorf("-bg-small and -bg-large must be given together")
		}
		return watermark.NewFromFiles(bgSmall, bgLarge, cfg)
	}
	return watermark.New(cfg)
}

func reportDetection(engine *watermark.Engine, log zerolog.Logger, path string, size watermark.SizeClass) bool {
	img, err := imaging.Load(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to load image")
		return false
	}
	det := engine.Detect(img, size)
	log.Info().
		Str("file", path).
		Bool("detected", det.Detected).
		Float64("confidence", det.Confidence).
		Str("size", det.Size.String()).
		Str("region", det.Region.String()).
		Msg("detection result")
	return true
}

func usage() {
	fmt.Fprintf(os.Stderr, `markfade - remove or add the generator watermark on images

Usage:
  markfade <image> [<image>...]       remove in place
  markfade -i <in> -o <out> [flags]   explicit input/output (file or dir)
  markfade -detect -i <image>         report detection only

Flags:
`)
	flag.PrintDefaults()
}
