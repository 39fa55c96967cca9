package watermark

import "image"

// SizeClass selects which canonical watermark footprint applies.
type SizeClass int

const (
	// SizeAuto derives the class from the image dimensions.
	SizeAuto SizeClass = iota

	// SizeSmall is the 48x48 logo with 32px margins.
	SizeSmall

	// SizeLarge is the 96x96 logo with 64px margins.
	SizeLarge
)

func (s SizeClass) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeLarge:
		return "large"
	default:
		return "auto"
	}
}

// Placement describes where the logo sits relative to the bottom-right
// corner of an image.
type Placement struct {
	MarginRight  int
	MarginBottom int
	LogoSize     int
}

// Canonical placements. Large applies only when both dimensions exceed
// 1024; a 1024x1024 image is Small.
var (
	placementSmall = Placement{MarginRight: 32, MarginBottom: 32, LogoSize: 48}
	placementLarge = Placement{MarginRight: 64, MarginBottom: 64, LogoSize: 96}
)

// ClassFor returns the size class the generator would use for an image of
// the given dimensions.
func ClassFor(width, height int) SizeClass {
	if width > 1024 && height > 1024 {
		return SizeLarge
	}
	return SizeSmall
}

// PlacementOf returns the canonical placement for a resolved size class.
// SizeAuto is not a resolved class; it maps to Small.
func PlacementOf(class SizeClass) Placement {
	if class == SizeLarge {
		return placementLarge
	}
	return placementSmall
}

// TopLeft returns the logo's top-left position within an image of the
// given dimensions.
func (p Placement) TopLeft(width, height int) image.Point {
	return image.Point{
		X: width - p.MarginRight - p.LogoSize,
		Y: height - p.MarginBottom - p.LogoSize,
	}
}

// resolve turns SizeAuto into the dimension-derived class and passes
// explicit classes through.
func resolve(class SizeClass, width, height int) SizeClass {
	if class == SizeAuto {
		return ClassFor(width, height)
	}
	return class
}
