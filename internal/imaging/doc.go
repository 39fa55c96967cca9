// Package imaging is the image decode/encode boundary of the tool.
//
// It normalizes every decoded image to *image.NRGBA, which is the pixel
// layout the blend and detection code operates on, and it encodes results
// honoring per-format quality parameters (near-lossless JPEG, default PNG
// compression, lossless WebP by default).
//
// Supported formats: PNG, JPEG, GIF, BMP, TIFF and WebP. WebP decoding
// goes through golang.org/x/image/webp with a chai2010/webp fallback;
// WebP encoding uses chai2010/webp since the x/image decoder is read-only.
package imaging
