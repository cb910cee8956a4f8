package view

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
)

// ErrUnsupportedEvent is returned by NativeView.Register for event kinds the platform never
// delivers (for example layout passes on the desktop host).
var ErrUnsupportedEvent = errors.New("event kind not supported by native view")

// EventKind identifies a native lifecycle callback.
type EventKind int

const (
	// EventPaint is the OS paint callback: a layer-backed update or an immediate-mode draw,
	// depending on the paint style the host was built with.
	EventPaint EventKind = iota
	// EventFrameChange is the explicit frame-changed notification of desktop views.
	EventFrameChange
	// EventBackingChange fires when the backing scale factor changes, e.g. when a window
	// moves to a display of a different density.
	EventBackingChange
	// EventLayout is the per-layout-pass callback of touch-device views.
	EventLayout
	// EventVSync is the vsync-aligned display timer. Registering it starts the timer;
	// removing the registration stops it.
	EventVSync
)

func (k EventKind) String() string {
	switch k {
	case EventPaint:
		return "paint"
	case EventFrameChange:
		return "frame-change"
	case EventBackingChange:
		return "backing-change"
	case EventLayout:
		return "layout"
	case EventVSync:
		return "vsync"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Registration is a live callback registration on a NativeView.
type Registration interface {
	// Remove unregisters the callback. Once Remove returns the callback is never invoked again.
	// Calling Remove more than once is safe.
	Remove()
}

// NativeView is the platform-native drawable a Bridge is installed into. Implementations are
// selected by build configuration: GLFW windows on desktop, UIKit views on touch devices.
// All methods are called on the UI thread.
type NativeView interface {
	// SurfaceTarget returns the inert handle pair identifying the view's drawable.
	SurfaceTarget() backend.SurfaceTarget

	// FrameSize returns the view's current size in device-independent points.
	FrameSize() common.LogicalSize

	// ConvertSizeToBacking converts a size in points into backing-store pixels using the
	// scale of the display the view is currently on.
	ConvertSizeToBacking(size common.LogicalSize) common.Size

	// BackingScaleFactor returns the current pixels-per-point ratio.
	BackingScaleFactor() float64

	// SetNeedsDisplay asks the OS to deliver a paint callback on a later loop iteration.
	// Multiple requests before the paint are coalesced by the OS.
	SetNeedsDisplay()

	// Register installs fn as the callback for kind. At most one callback per kind is live.
	//
	// Parameters:
	//   - kind: the lifecycle event to observe
	//   - fn: the callback, invoked on the UI thread
	//
	// Returns:
	//   - Registration: the handle removing the callback
	//   - error: ErrUnsupportedEvent if the platform never delivers kind
	Register(kind EventKind, fn func()) (Registration, error)
}
