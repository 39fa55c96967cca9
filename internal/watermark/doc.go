// Package watermark implements the watermark engine: opacity maps derived
// from reference background captures, the size and placement rules, the
// forward/reverse alpha-compositing math, and the public detect, add,
// remove and guided-detect operations.
//
// One Engine is constructed per process or per configuration; there is no
// implicit shared instance. The engine's alpha maps are immutable after
// construction, so a single engine may serve detection and blending calls
// from multiple goroutines concurrently as long as each call works on its
// own image buffer.
package watermark
