package view

import (
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
)

// BridgeBuilderOption is a functional option for configuring a Bridge.
// Use the With* functions to create options.
type BridgeBuilderOption func(b *Bridge)

// WithVariant overrides the compile-time feature selection. Embedding hosts and tests use it
// to exercise variants without rebuilding.
//
// Parameters:
//   - v: the variant to use
//
// Returns:
//   - BridgeBuilderOption: option function to apply
func WithVariant(v Variant) BridgeBuilderOption {
	return func(b *Bridge) {
		b.variant = v
	}
}

// WithDispatcher sets the UI thread dispatcher used to defer display requests raised while a
// paint is in progress. Without one the request is made directly.
//
// Parameters:
//   - d: the dispatcher drained by the host's event loop
//
// Returns:
//   - BridgeBuilderOption: option function to apply
func WithDispatcher(d *dispatch.Dispatcher) BridgeBuilderOption {
	return func(b *Bridge) {
		b.dispatcher = d
	}
}

// WithFatalHandler replaces the default handler, which logs and exits the process.
//
// Parameters:
//   - h: the handler receiving the failed step and its error
//
// Returns:
//   - BridgeBuilderOption: option function to apply
func WithFatalHandler(h FatalHandler) BridgeBuilderOption {
	return func(b *Bridge) {
		if h != nil {
			b.fatal = h
		}
	}
}

// WithSurfaceOptions passes options through to the render surface when it is created.
// They are applied after the variant's present mode.
//
// Parameters:
//   - opts: the render surface options
//
// Returns:
//   - BridgeBuilderOption: option function to apply
func WithSurfaceOptions(opts ...renderer.RenderSurfaceBuilderOption) BridgeBuilderOption {
	return func(b *Bridge) {
		b.surfaceOptions = append(b.surfaceOptions, opts...)
	}
}
