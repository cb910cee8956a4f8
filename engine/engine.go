package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
)

// windowFactory creates a host window. Replaced in tests.
type windowFactory func(options ...window.WindowBuilderOption) (window.Window, error)

// slot is one view of the window layout.
type slot struct {
	label string
	width int
	index int
	count int
}

// engine implements the Engine interface.
// Owns the windows, their bridges and the UI thread dispatcher.
type engine struct {
	cfg     config.Config
	variant view.Variant
	backend backend.Backend
	fatal   view.FatalHandler

	dispatcher *dispatch.Dispatcher
	pool       worker.DynamicWorkerPool
	// ownsPool is true when NewEngine created pool; a pool passed in belongs to the caller.
	ownsPool  bool
	newWindow windowFactory

	windows []window.Window
	bridges []*view.Bridge
	// counters holds the background frame counters, which run until closed even if their
	// surface is never created.
	counters []profiler.FrameCounter
}

// Engine is the main entry point of the triangle host.
// It creates one window per view of the build's layout, installs a view.Bridge into each and
// runs the platform event loop.
type Engine interface {
	// Run launches the platform, creates the windows and blocks until the last one is closed.
	//
	// Returns:
	//   - error: error if the platform could not start or a window could not be set up
	Run() error

	// Windows returns the open windows in layout order.
	//
	// Returns:
	//   - []window.Window: the windows
	Windows() []window.Window

	// Bridges returns the bridges installed into the windows, in the same order.
	//
	// Returns:
	//   - []*view.Bridge: the bridges
	Bridges() []*view.Bridge
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options.
// Defaults to the built-in configuration, the build's variant and the wgpu backend.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		cfg:       config.Default(),
		variant:   view.BuildVariant(),
		newWindow: window.NewWindow,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.backend == nil {
		e.backend = backend.NewWGPUBackend()
	}
	e.dispatcher = dispatch.New(window.Wake)
	if e.cfg.Profiling.Enabled && e.pool == nil {
		e.pool = worker.NewDynamicWorkerPool(1, 64, time.Second)
		e.ownsPool = true
	}
	return e
}

func (e *engine) Run() error {
	defer e.stopPool()
	return window.Launch(e.launch, e.update)
}

// stopPool stops the report pool if the engine created it. Runs after the last window, and
// with it the last frame counter, has closed.
func (e *engine) stopPool() {
	if !e.ownsPool {
		return
	}
	e.pool.Stop()
	e.ownsPool = false
}

func (e *engine) Windows() []window.Window {
	return e.windows
}

func (e *engine) Bridges() []*view.Bridge {
	return e.bridges
}

// slots lays the configured window width out over the variant's views.
func (e *engine) slots() []slot {
	if e.variant.Layout == view.LayoutSideBySide {
		half := e.cfg.Window.Width / 2
		return []slot{
			{label: e.cfg.Window.Title + " (left)", width: half, index: 0, count: 2},
			{label: e.cfg.Window.Title + " (right)", width: half, index: 1, count: 2},
		}
	}
	return []slot{{label: e.cfg.Window.Title, width: e.cfg.Window.Width, index: 0, count: 1}}
}

// launch creates the windows and attaches a bridge to each. Runs on the UI thread once the
// platform has finished launching.
func (e *engine) launch() error {
	for _, s := range e.slots() {
		win, err := e.newWindow(
			window.WithTitle(s.label),
			window.WithWidth(s.width),
			window.WithHeight(e.cfg.Window.Height),
			window.WithTile(s.index, s.count),
			window.WithPaintStyle(e.variant.PaintStyle),
			window.WithDispatcher(e.dispatcher),
		)
		if err != nil {
			e.shutdown()
			return fmt.Errorf("failed to create window %q: %w", s.label, err)
		}
		e.windows = append(e.windows, win)

		surfaceOpts, counter, err := e.surfaceOptions(s)
		if err != nil {
			e.shutdown()
			return err
		}
		bridgeOpts := []view.BridgeBuilderOption{
			view.WithVariant(e.variant),
			view.WithDispatcher(e.dispatcher),
			view.WithSurfaceOptions(surfaceOpts...),
		}
		if e.fatal != nil {
			bridgeOpts = append(bridgeOpts, view.WithFatalHandler(e.fatal))
		}
		br := view.NewBridge(win, e.backend, bridgeOpts...)
		e.bridges = append(e.bridges, br)
		win.SetCloseCallback(e.closeHandler(win, br, counter))

		if err := br.Attach(); err != nil {
			e.shutdown()
			return fmt.Errorf("failed to attach view %q: %w", s.label, err)
		}
	}
	common.Logger().Info("views attached", "count", len(e.bridges), "variant", fmt.Sprintf("%+v", e.variant))
	return nil
}

// surfaceOptions builds the render surface options for one view. With profiling enabled the
// view gets a background frame counter, which is also returned so it can be closed.
func (e *engine) surfaceOptions(s slot) ([]renderer.RenderSurfaceBuilderOption, profiler.FrameCounter, error) {
	opts := []renderer.RenderSurfaceBuilderOption{
		renderer.WithLabel(s.label),
		renderer.WithForceFallbackAdapter(e.cfg.GPU.ForceFallbackAdapter),
	}
	if !e.cfg.Profiling.Enabled {
		return opts, nil, nil
	}

	interval, err := e.cfg.ReportInterval()
	if err != nil {
		return nil, nil, err
	}
	counter := profiler.NewBackgroundFrameCounter(
		profiler.WithInterval(interval),
		profiler.WithMemoryStats(e.cfg.Profiling.MemoryStats),
		profiler.WithWorkerPool(e.pool),
	)
	e.counters = append(e.counters, counter)
	return append(opts, renderer.WithFrameCounter(counter)), counter, nil
}

// closeHandler tears the bridge down before its window goes away.
func (e *engine) closeHandler(win window.Window, br *view.Bridge, counter profiler.FrameCounter) func() {
	return func() {
		br.Teardown()
		if counter != nil {
			counter.Close()
		}
		if err := win.Close(); err != nil {
			common.Logger().Warn("failed to close window", "title", win.Title(), "err", err)
		}
	}
}

// update runs on the UI thread after every event loop iteration.
func (e *engine) update() {
	e.dispatcher.Drain()
}

// shutdown tears down every bridge and closes every window still open.
func (e *engine) shutdown() {
	var errs []error
	for i, br := range e.bridges {
		br.Teardown()
		if i < len(e.windows) && e.windows[i].IsRunning() {
			errs = append(errs, e.windows[i].Close())
		}
	}
	for _, win := range e.windows[len(e.bridges):] {
		if win.IsRunning() {
			errs = append(errs, win.Close())
		}
	}
	for _, c := range e.counters {
		c.Close()
	}
	if err := errors.Join(errs...); err != nil {
		common.Logger().Warn("shutdown incomplete", "err", err)
	}
}
