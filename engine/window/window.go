package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
)

// Window is a native window whose content view a view.Bridge draws into.
// On desktop every Window is a top-level GLFW window; on touch devices it is a view inside
// the application's key window.
type Window interface {
	view.NativeView

	// SetCloseCallback sets the function called when the user asks to close the window.
	// The callback is expected to tear down whatever draws into the window and then call Close.
	// Without a callback the window closes immediately.
	//
	// Parameters:
	//   - callback: function to call (or nil to close immediately)
	SetCloseCallback(callback func())

	// IsRunning returns true if the window is still open.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources. Live registrations are removed.
	//
	// Returns:
	//   - error: error if the window was not open
	Close() error

	// Title returns the window title.
	//
	// Returns:
	//   - string: the title
	Title() string
}

// registration is a live entry in a window's callback table.
type registration struct {
	w       *engineWindow
	kind    view.EventKind
	fn      func()
	removed bool
	// stop tears down the platform timer behind an EventVSync registration.
	stop func()
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, platform state, and the callback registration table.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the initial content width in points.
	width int

	// height is the initial content height in points.
	height int

	// tileIndex and tileCount place the window in a horizontal row of equally sized windows
	// centered on the primary monitor. A single window has index 0 of 1.
	tileIndex int
	tileCount int

	// paintStyle selects whether OS refreshes are painted immediately or through the display cycle.
	paintStyle view.PaintStyle

	// dispatcher delivers timer ticks onto the UI thread.
	dispatcher *dispatch.Dispatcher

	// refreshRate overrides the monitor refresh rate for the vsync timer, in Hz.
	refreshRate int

	// internalWindow holds the platform-specific window data.
	internalWindow any

	// callbacks is the registration table, at most one live entry per event kind.
	callbacks map[view.EventKind]*registration

	// needsDisplay is set by SetNeedsDisplay and serviced by the event loop.
	needsDisplay bool

	// onClose is called when the user asks to close the window.
	onClose func()

	affinity common.ThreadAffinity
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order. Must be called on the UI thread,
// after Launch has started the platform.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:      "oxy-view",
		width:      1024,
		height:     768,
		tileCount:  1,
		paintStyle: view.BuildVariant().PaintStyle,
		callbacks:  make(map[view.EventKind]*registration),
		affinity:   common.NewThreadAffinity("Window"),
	}
	for _, opt := range options {
		opt(w)
	}
	if w.tileCount < 1 {
		w.tileCount = 1
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

// Launch starts the platform, calls onLaunch on the UI thread once the application has finished
// launching, then runs the event loop until every window is closed. update runs on the UI thread
// after each batch of platform events; hosts drain their dispatcher there.
//
// Parameters:
//   - onLaunch: creates the initial windows; an error aborts the launch
//   - update: called after each event loop iteration
//
// Returns:
//   - error: an error if the platform could not start or onLaunch failed
func Launch(onLaunch func() error, update func()) error {
	return platformLaunch(onLaunch, update)
}

// Wake interrupts a blocked event loop so update runs promptly. Safe to call from any goroutine.
func Wake() {
	platformWake()
}

func (w *engineWindow) SurfaceTarget() backend.SurfaceTarget {
	return platformSurfaceTarget(w)
}

func (w *engineWindow) FrameSize() common.LogicalSize {
	return platformFrameSize(w)
}

func (w *engineWindow) ConvertSizeToBacking(size common.LogicalSize) common.Size {
	return platformConvertSizeToBacking(w, size)
}

func (w *engineWindow) BackingScaleFactor() float64 {
	return platformBackingScaleFactor(w)
}

func (w *engineWindow) SetNeedsDisplay() {
	w.affinity.Check("SetNeedsDisplay")
	platformSetNeedsDisplay(w)
}

func (w *engineWindow) Register(kind view.EventKind, fn func()) (view.Registration, error) {
	w.affinity.Check("Register")
	if !platformSupports(kind) {
		return nil, fmt.Errorf("%w: %s", view.ErrUnsupportedEvent, kind)
	}
	if existing := w.callbacks[kind]; existing != nil && !existing.removed {
		return nil, fmt.Errorf("%s callback already registered", kind)
	}

	reg := &registration{w: w, kind: kind, fn: fn}
	if kind == view.EventVSync {
		stop, err := platformStartVSync(w, reg)
		if err != nil {
			return nil, fmt.Errorf("failed to start vsync timer: %w", err)
		}
		reg.stop = stop
	}
	w.callbacks[kind] = reg
	return reg, nil
}

func (r *registration) Remove() {
	if r.removed {
		return
	}
	r.removed = true
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
	if r.w.callbacks[r.kind] == r {
		delete(r.w.callbacks, r.kind)
	}
}

// fire invokes the live callback registered for kind, if any.
func (w *engineWindow) fire(kind view.EventKind) {
	if reg := w.callbacks[kind]; reg != nil && !reg.removed {
		reg.fn()
	}
}

// removeAll removes every live registration, timers first.
func (w *engineWindow) removeAll() {
	if reg := w.callbacks[view.EventVSync]; reg != nil {
		reg.Remove()
	}
	for _, reg := range w.callbacks {
		reg.Remove()
	}
}

func (w *engineWindow) SetCloseCallback(callback func()) {
	w.onClose = callback
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	w.affinity.Check("Close")
	w.removeAll()
	return platformCloseWindow(w)
}

func (w *engineWindow) Title() string {
	return w.title
}

// requestClose handles a user close request.
func (w *engineWindow) requestClose() {
	if w.onClose != nil {
		w.onClose()
		return
	}
	if err := w.Close(); err != nil {
		common.Logger().Warn("failed to close window", "title", w.title, "err", err)
	}
}
