// Package assets embeds the canonical reference background captures.
//
// The captures are images of the watermark rendered against a black
// background; the engine derives its per-pixel opacity maps from them at
// construction time. Shipping them embedded keeps the binary standalone;
// no external asset files are required to build a working engine.
package assets

import _ "embed"

// CaptureSmall is the 48x48 reference background capture (PNG).
//
//go:embed bg_48.png
var CaptureSmall []byte

// CaptureLarge is the 96x96 reference background capture (PNG).
//
//go:embed bg_96.png
var CaptureLarge []byte
