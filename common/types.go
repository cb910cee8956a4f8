// package common contains common types that are used throughout this module. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "fmt"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the display's refresh rate. This is the default.
	PresentModeVSync PresentMode = iota

	// PresentModeImmediate presents frames as soon as they are submitted without waiting for
	// vertical blank. May tear.
	PresentModeImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

// TextureFormat is the pixel format of a drawable surface, as reported by the graphics backend.
// The value is opaque outside of the backend that produced it.
type TextureFormat uint32

// Size is a dimension in backing-store (device) pixels.
type Size struct {
	// Width is the horizontal extent in pixels.
	Width uint32
	// Height is the vertical extent in pixels.
	Height uint32
}

// IsZero reports whether either dimension is zero. A surface cannot be configured
// or drawn at such a size.
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// LogicalSize is a dimension in device-independent units (points).
type LogicalSize struct {
	Width, Height float64
}

// SurfaceConfiguration governs how a drawable surface produces presentable textures.
type SurfaceConfiguration struct {
	// Width is the surface width in pixels.
	Width uint32
	// Height is the surface height in pixels.
	Height uint32
	// PresentMode selects vsync or immediate presentation.
	PresentMode PresentMode
	// Format is the texture format of the presentable textures.
	Format TextureFormat
}

// Size returns the configured dimensions.
func (c SurfaceConfiguration) Size() Size {
	return Size{Width: c.Width, Height: c.Height}
}

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

var (
	// ColorGreen is the clear color of the triangle render pass.
	ColorGreen = Color{R: 0, G: 1, B: 0, A: 1}
)
