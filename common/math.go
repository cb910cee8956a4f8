package common

import (
	"encoding/binary"
	"math"
)

// Float32Bytes returns the little-endian encoding of the given float32 values, the layout
// GPU uniform buffers expect.
//
// Parameters:
//   - values: the float32 values to encode
//
// Returns:
//   - []byte: a freshly allocated buffer of 4*len(values) bytes
func Float32Bytes(values ...float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// ConvertSizeToBacking converts a logical size into backing-store pixels using the given
// backing scale factor. The result is rounded to the nearest pixel, since a scale derived from
// a framebuffer/window ratio can land a hair below the true pixel count. Negative or NaN inputs
// yield zero.
//
// Parameters:
//   - logical: the size in device-independent points
//   - scale: the backing scale factor (pixels per point)
//
// Returns:
//   - Size: the size in device pixels
func ConvertSizeToBacking(logical LogicalSize, scale float64) Size {
	return Size{
		Width:  toPixels(logical.Width * scale),
		Height: toPixels(logical.Height * scale),
	}
}

// LogicalWidth returns the device-independent width of a pixel width at the given scale factor.
// This is the value the triangle shader expects in its uniform. A non-positive scale is treated as 1.
func LogicalWidth(widthPx uint32, scale float64) float32 {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	return float32(widthPx) / float32(scale)
}

func toPixels(v float64) uint32 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	v = math.Round(v)
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
