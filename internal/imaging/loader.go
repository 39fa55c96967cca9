package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Load reads and decodes the image at path, normalized to NRGBA.
//
// Returns an error if the file cannot be opened or is not in a supported
// format.
func Load(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes an in-memory image, normalized to NRGBA.
//
// The stdlib decode registry (PNG, JPEG, GIF plus the x/image BMP, TIFF
// and WebP decoders) is tried first; chai2010/webp is the fallback for
// WebP variants the x/image decoder rejects.
func Decode(data []byte) (*image.NRGBA, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return ToNRGBA(img), nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return ToNRGBA(img), nil
	}
	return nil, fmt.Errorf("unknown or unsupported image format")
}

// ToNRGBA converts any decoded image to the NRGBA layout the rest of the
// tool operates on. Gray and alpha-carrying inputs are expanded; NRGBA
// inputs are still cloned so the caller owns a mutable buffer.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
