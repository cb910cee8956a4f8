package renderer

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
)

// RenderSurfaceBuilderOption is a functional option applied to a render surface during construction via NewRenderSurface.
type RenderSurfaceBuilderOption func(*renderSurface)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Immediate)
//
// Returns:
//   - RenderSurfaceBuilderOption: a function that applies the present mode option to a render surface
func WithPresentMode(mode common.PresentMode) RenderSurfaceBuilderOption {
	return func(s *renderSurface) {
		s.presentMode = mode
	}
}

// WithClearColor sets the color the drawable is cleared to at the start of every frame.
//
// Parameters:
//   - c: the clear color (default green)
//
// Returns:
//   - RenderSurfaceBuilderOption: a function that applies the clear color option to a render surface
func WithClearColor(c common.Color) RenderSurfaceBuilderOption {
	return func(s *renderSurface) {
		s.clearColor = c
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RenderSurfaceBuilderOption: a function that applies the fallback adapter option to a render surface
func WithForceFallbackAdapter(force bool) RenderSurfaceBuilderOption {
	return func(s *renderSurface) {
		s.forceFallback = force
	}
}

// WithFrameCounter replaces the default reactive frame counter. The render surface takes
// ownership and closes the counter on Release.
//
// Parameters:
//   - fc: the FrameCounter advanced by every presented frame
//
// Returns:
//   - RenderSurfaceBuilderOption: a function that applies the frame counter option to a render surface
func WithFrameCounter(fc profiler.FrameCounter) RenderSurfaceBuilderOption {
	return func(s *renderSurface) {
		s.frameCounter = fc
	}
}

// WithShaderSource replaces the built-in triangle shader. The source must define a @vertex and a
// @fragment entry point and read a single f32 uniform at group 0 binding 0.
//
// Parameters:
//   - wgsl: the WGSL shader source
//
// Returns:
//   - RenderSurfaceBuilderOption: a function that applies the shader option to a render surface
func WithShaderSource(wgsl string) RenderSurfaceBuilderOption {
	return func(s *renderSurface) {
		if wgsl != "" {
			s.shaderSource = wgsl
		}
	}
}

// WithLabel sets the debug label prefix of the GPU objects.
//
// Parameters:
//   - label: the label prefix (default "Triangle")
//
// Returns:
//   - RenderSurfaceBuilderOption: a function that applies the label option to a render surface
func WithLabel(label string) RenderSurfaceBuilderOption {
	return func(s *renderSurface) {
		if label != "" {
			s.label = label
		}
	}
}
