package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
)

// State is the lifecycle state of a Bridge.
type State int

const (
	// StateUnattached is a constructed bridge whose callbacks are not registered yet.
	StateUnattached State = iota
	// StateInitializing is an attached bridge waiting for a non-zero pixel size to create
	// its render surface.
	StateInitializing
	// StateReady is a bridge with a live render surface.
	StateReady
	// StateTornDown is a bridge whose registrations and render surface are released.
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FatalHandler receives steady-state GPU failures, which have no recovery path.
// The default handler logs the failed step and exits the process with status 1.
type FatalHandler func(step string, err error)

// Bridge is the drawable installed into a native view. It owns the view's RenderSurface and
// translates OS paint, resize, backing-change and vsync callbacks into surface operations.
//
// A Bridge is bound to the goroutine that created it (the UI thread). Callbacks delivered on
// any other goroutine, before Attach or after Teardown, panic.
//
// Overlapping redraw triggers are not deduplicated: a resize with eager redraw followed by a
// vsync tick draws two frames.
type Bridge struct {
	affinity common.ThreadAffinity

	native         NativeView
	backend        backend.Backend
	variant        Variant
	dispatcher     *dispatch.Dispatcher
	fatal          FatalHandler
	surfaceOptions []renderer.RenderSurfaceBuilderOption

	state         State
	surface       renderer.RenderSurface
	size          common.Size
	scale         float64
	registrations []Registration
	timer         Registration
	painting      bool
}

// NewBridge creates an unattached bridge for native. Nothing is registered and no GPU
// resource is created until Attach.
//
// Parameters:
//   - native: the platform view the bridge draws into
//   - b: the graphics backend the render surface is created on
//   - options: variadic list of BridgeBuilderOption functions
//
// Returns:
//   - *Bridge: the new bridge
func NewBridge(native NativeView, b backend.Backend, options ...BridgeBuilderOption) *Bridge {
	br := &Bridge{
		affinity: common.NewThreadAffinity("Bridge"),
		native:   native,
		backend:  b,
		variant:  BuildVariant(),
		fatal:    exitOnFatal,
		state:    StateUnattached,
	}
	for _, opt := range options {
		opt(br)
	}
	return br
}

// Attach registers the bridge's callbacks with the native view and, when the view already has
// a non-zero backing size, creates the render surface. A view still at zero size gets its
// surface on the first frame change reporting a real size.
//
// Returns:
//   - error: an error if a callback could not be registered or the render surface could not be
//     created; the bridge is torn down in that case
func (b *Bridge) Attach() error {
	b.affinity.Check("Attach")
	if b.state != StateUnattached {
		panic(fmt.Sprintf("Bridge.Attach called on a %s bridge", b.state))
	}
	b.state = StateInitializing

	resizeKinds := []EventKind{EventFrameChange, EventBackingChange, EventLayout}
	for _, kind := range resizeKinds {
		if err := b.register(kind, b.FrameChanged); err != nil {
			b.Teardown()
			return err
		}
	}
	if err := b.register(EventPaint, b.Paint); err != nil {
		b.Teardown()
		return err
	}

	size := b.native.ConvertSizeToBacking(b.native.FrameSize())
	scale := b.native.BackingScaleFactor()
	if size.IsZero() {
		common.Logger().Debug("deferring render surface creation until first layout", slog.String("size", size.String()))
		return nil
	}
	if err := b.createSurface(size, scale); err != nil {
		b.Teardown()
		return err
	}
	return nil
}

// register installs fn for kind, tolerating kinds the platform does not deliver.
func (b *Bridge) register(kind EventKind, fn func()) error {
	reg, err := b.native.Register(kind, fn)
	if errors.Is(err, ErrUnsupportedEvent) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to register %s callback: %w", kind, err)
	}
	b.registrations = append(b.registrations, reg)
	return nil
}

// createSurface moves the bridge from Initializing to Ready.
func (b *Bridge) createSurface(size common.Size, scale float64) error {
	if b.surface != nil {
		panic("Bridge render surface initialized twice")
	}

	opts := append([]renderer.RenderSurfaceBuilderOption{renderer.WithPresentMode(b.variant.PresentMode)}, b.surfaceOptions...)
	s, err := renderer.NewRenderSurface(b.backend, b.native.SurfaceTarget(), size.Width, size.Height, scale, opts...)
	if err != nil {
		return fmt.Errorf("failed to create render surface at %s: %w", size, err)
	}
	b.surface = s
	b.size = size
	b.scale = scale
	b.state = StateReady

	if b.variant.EagerRedraw {
		b.redraw()
	}
	if b.variant.Trigger == RedrawOnVSyncTimer {
		timer, err := b.native.Register(EventVSync, b.VSync)
		if err != nil {
			return fmt.Errorf("failed to register vsync timer: %w", err)
		}
		b.timer = timer
	}
	return nil
}

// Paint is the OS paint callback. It redraws the surface unless the view is at a zero size.
func (b *Bridge) Paint() {
	b.checkCallable("Paint")
	common.Logger().Debug(b.variant.PaintStyle.callbackName())
	if b.state != StateReady || b.size.IsZero() {
		return
	}

	b.painting = true
	defer func() { b.painting = false }()
	b.redraw()
}

// FrameChanged is the frame-change, backing-change and layout callback. It recomputes the
// backing pixel size and scale, resizes the surface, and with eager redraw enabled redraws
// immediately afterwards. The first call with a real size creates the surface.
func (b *Bridge) FrameChanged() {
	b.checkCallable("FrameChanged")
	common.Logger().Debug("frameDidChange:")

	size := b.native.ConvertSizeToBacking(b.native.FrameSize())
	scale := b.native.BackingScaleFactor()

	if b.state == StateInitializing {
		if size.IsZero() {
			return
		}
		if err := b.createSurface(size, scale); err != nil {
			b.fatal("create render surface", err)
		}
		return
	}

	if size.IsZero() {
		// a zero-sized surface cannot be configured; keep the old configuration and skip paints
		b.size = size
		return
	}
	if err := b.surface.Resize(size.Width, size.Height, scale); err != nil {
		b.fatal("resize", err)
		return
	}
	b.size = size
	b.scale = scale

	if b.variant.EagerRedraw {
		b.redraw()
	}
}

// VSync is the display timer callback. With eager redraw it redraws directly; otherwise it
// marks the view as needing display so the OS coalesces pending paints. A tick arriving while
// a paint is in progress defers the mark through the dispatcher.
func (b *Bridge) VSync() {
	b.checkCallable("VSync")
	if b.state != StateReady {
		return
	}
	if b.variant.EagerRedraw {
		b.redraw()
		return
	}
	if b.painting && b.dispatcher != nil {
		b.dispatcher.Schedule(b.native.SetNeedsDisplay)
		return
	}
	b.native.SetNeedsDisplay()
}

// Teardown removes the vsync timer, then every other registration, and only then releases the
// render surface. Calling Teardown more than once is safe.
func (b *Bridge) Teardown() {
	b.affinity.Check("Teardown")
	if b.state == StateTornDown {
		return
	}

	if b.timer != nil {
		b.timer.Remove()
		b.timer = nil
	}
	for i := len(b.registrations) - 1; i >= 0; i-- {
		b.registrations[i].Remove()
	}
	b.registrations = nil

	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	b.state = StateTornDown
}

// State returns the bridge's lifecycle state.
func (b *Bridge) State() State {
	return b.state
}

// Size returns the backing pixel size last applied to the surface.
func (b *Bridge) Size() common.Size {
	return b.size
}

// Surface returns the render surface, or nil before the bridge is Ready.
func (b *Bridge) Surface() renderer.RenderSurface {
	return b.surface
}

func (b *Bridge) redraw() {
	if b.size.IsZero() {
		return
	}
	if err := b.surface.Redraw(); err != nil {
		b.fatal("redraw", err)
	}
}

func (b *Bridge) checkCallable(op string) {
	b.affinity.Check(op)
	if b.state == StateUnattached || b.state == StateTornDown {
		panic(fmt.Sprintf("Bridge.%s delivered to a %s bridge", op, b.state))
	}
}

// exitOnFatal is the default FatalHandler.
func exitOnFatal(step string, err error) {
	logger := common.Logger()
	if !logger.Enabled(context.Background(), slog.LevelError) {
		logger = slog.Default()
	}
	logger.Error("unrecoverable GPU failure", slog.String("step", step), slog.Any("err", err))
	os.Exit(1)
}
