package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// SaveOptions controls per-format encoding parameters.
type SaveOptions struct {
	// JPEGQuality is the JPEG quality (1-100). Zero selects the default.
	JPEGQuality int

	// WebPQuality is the lossy WebP quality (1-100), ignored when
	// WebPLossless is set. Zero selects the default.
	WebPQuality int

	// WebPLossless selects lossless WebP encoding.
	WebPLossless bool
}

// DefaultSaveOptions mirrors the reference tool's output settings:
// near-lossless JPEG and lossless WebP, so a removal pass does not
// introduce fresh compression artifacts on top of the corrected pixels.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{
		JPEGQuality:  100,
		WebPQuality:  100,
		WebPLossless: true,
	}
}

// Save encodes img to path, choosing the format from the file extension.
//
// JPEG, PNG, GIF, BMP and TIFF go through imaging.Save; WebP through
// chai2010/webp. The parent directory must already exist.
func Save(img image.Image, path string, opts SaveOptions) error {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		q := opts.WebPQuality
		if q <= 0 {
			q = 100
		}
		wopts := &webp.Options{Lossless: opts.WebPLossless, Quality: float32(q)}
		if err := webp.Encode(f, img, wopts); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return nil
	case ".jpg", ".jpeg":
		q := opts.JPEGQuality
		if q <= 0 {
			q = 100
		}
		return imaging.Save(img, path, imaging.JPEGQuality(q))
	case ".png", ".gif", ".bmp", ".tif", ".tiff":
		return imaging.Save(img, path)
	default:
		return fmt.Errorf("unsupported output format: %q", ext)
	}
}
