// Package detection implements the numeric primitives and the two
// watermark detectors.
//
// All algorithms operate on Field values: flat float64 grayscale planes
// in the [0, 1] range extracted from NRGBA pixel buffers with BT.601 luma
// weights. The package has no knowledge of size rules or alpha-map
// ownership; callers supply the candidate geometry and the opacity
// template.
//
// Two entry points matter to callers:
//
//   - ScoreRegion runs the three-stage fixed-position scorer: spatial NCC
//     against the opacity template, gradient-magnitude NCC, and a texture
//     variance comparison, fused into a single confidence.
//
//   - GuidedSearch locates an overlay of unknown scale and position
//     inside a search window with a coarse-to-fine scan of size-adjusted
//     NCC template matches, under cooperative cancellation.
//
// Detection is advisory: degenerate geometry (out-of-bounds candidate,
// undersized window) produces zero-confidence results, never errors.
package detection
