package window

import (
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
)

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithWidth sets the initial content width of the window.
//
// Parameters:
//   - width: initial width in points
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
	}
}

// WithHeight sets the initial content height of the window.
//
// Parameters:
//   - height: initial height in points
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height = height
	}
}

// WithTile places the window in slot index of a horizontal row of count equally sized windows.
// The row as a whole is centered on the primary monitor.
//
// Parameters:
//   - index: zero-based slot, counted from the left
//   - count: number of windows in the row
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTile(index, count int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.tileIndex = index
		w.tileCount = count
	}
}

// WithPaintStyle overrides how OS refresh requests are turned into paint callbacks.
//
// Parameters:
//   - style: the paint style
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithPaintStyle(style view.PaintStyle) WindowBuilderOption {
	return func(w *engineWindow) {
		w.paintStyle = style
	}
}

// WithDispatcher sets the dispatcher vsync timer ticks are delivered through.
// A window without a dispatcher rejects EventVSync registrations.
//
// Parameters:
//   - d: the dispatcher drained by the event loop
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithDispatcher(d *dispatch.Dispatcher) WindowBuilderOption {
	return func(w *engineWindow) {
		w.dispatcher = d
	}
}

// WithRefreshRate overrides the vsync timer rate, which otherwise follows the primary monitor.
//
// Parameters:
//   - hz: ticks per second
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithRefreshRate(hz int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.refreshRate = hz
	}
}
