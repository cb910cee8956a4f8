//go:build !ios

package window

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	id      uintptr
	running bool

	// closeRequested is set by the close callback and serviced by the event loop, since a GLFW
	// window must not be destroyed from inside one of its own callbacks.
	closeRequested bool
}

var (
	// glfwReady is true between glfw.Init and glfw.Terminate.
	glfwReady atomic.Bool

	// windowsMu guards windows and nextWindowID. The surface resolver may run on any goroutine
	// the backend is called from.
	windowsMu    sync.Mutex
	windows      = make(map[uintptr]*glfwWindow)
	nextWindowID uintptr
)

func init() {
	backend.RegisterSurfaceResolver(backend.HandleKindGLFW, resolveGLFWTarget)
}

// resolveGLFWTarget maps a window id issued by this package to the wgpu surface descriptor of
// the underlying native window.
func resolveGLFWTarget(target backend.SurfaceTarget) (any, error) {
	windowsMu.Lock()
	gw, ok := windows[target.Window.Value]
	windowsMu.Unlock()
	if !ok || !gw.running {
		return nil, fmt.Errorf("%w: no open window with id %d", backend.ErrUnsupportedTarget, target.Window.Value)
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window), nil
}

// openWindows returns the number of windows not yet closed.
func openWindows() int {
	windowsMu.Lock()
	defer windowsMu.Unlock()
	return len(windows)
}

// snapshotWindows returns the open windows in creation order.
func snapshotWindows() []*glfwWindow {
	windowsMu.Lock()
	defer windowsMu.Unlock()
	out := make([]*glfwWindow, 0, len(windows))
	for id := uintptr(1); id <= nextWindowID; id++ {
		if gw, ok := windows[id]; ok {
			out = append(out, gw)
		}
	}
	return out
}

func ensureGLFW() error {
	if glfwReady.Load() {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfwReady.Store(true)
	return nil
}

// platformLaunch runs the GLFW event loop on the locked main thread.
//
// GLFW reference: https://www.glfw.org/docs/latest/input_guide.html#events
func platformLaunch(onLaunch func() error, update func()) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ensureGLFW(); err != nil {
		return err
	}
	defer func() {
		glfwReady.Store(false)
		glfw.Terminate()
	}()

	common.Logger().Info("applicationDidFinishLaunching")
	if err := onLaunch(); err != nil {
		for _, gw := range snapshotWindows() {
			_ = gw.parent.Close()
		}
		return err
	}

	for openWindows() > 0 {
		glfw.WaitEvents()
		if update != nil {
			update()
		}
		for _, gw := range snapshotWindows() {
			if gw.closeRequested {
				gw.closeRequested = false
				gw.parent.requestClose()
				continue
			}
			if gw.parent.needsDisplay {
				gw.parent.needsDisplay = false
				gw.parent.fire(view.EventPaint)
			}
		}
	}
	common.Logger().Info("last window closed, terminating")
	return nil
}

func platformWake() {
	if glfwReady.Load() {
		glfw.PostEmptyEvent()
	}
}

// newPlatformWindow creates the GLFW window, wires its callbacks to the registration table
// and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	if err := ensureGLFW(); err != nil {
		return err
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}

	windowsMu.Lock()
	nextWindowID++
	gw := &glfwWindow{
		parent:  w,
		window:  win,
		id:      nextWindowID,
		running: true,
	}
	windows[gw.id] = gw
	windowsMu.Unlock()
	w.internalWindow = gw

	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		mx, my, mw, mh := monitor.GetWorkarea()
		ww, wh := win.GetSize()
		x, y := tilePosition(mx, my, mw, mh, ww, wh, w.tileIndex, w.tileCount)
		win.SetPos(x, y)
		if w.refreshRate <= 0 {
			if mode := monitor.GetVideoMode(); mode != nil {
				w.refreshRate = mode.RefreshRate
			}
		}
	}

	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_refresh
	win.SetRefreshCallback(func(_ *glfw.Window) {
		if w.paintStyle == view.PaintStyleDrawRect {
			w.fire(view.EventPaint)
			return
		}
		w.needsDisplay = true
	})

	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_fbsize
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.fire(view.EventFrameChange)
	})

	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_scale
	win.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		w.fire(view.EventBackingChange)
	})

	win.SetCloseCallback(func(_ *glfw.Window) {
		gw.closeRequested = true
	})

	// Escape closes the window, matching the platform close button.
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.closeRequested = true
		}
	})

	w.needsDisplay = true
	win.Show()
	return nil
}

// tilePosition returns the top-left corner of slot index in a row of count windows of size
// ww x wh, with the row centered in the monitor work area.
func tilePosition(mx, my, mw, mh, ww, wh, index, count int) (int, int) {
	left := mx + (mw-ww*count)/2
	top := my + (mh-wh)/2
	return left + index*ww, top
}

func platformSupports(kind view.EventKind) bool {
	switch kind {
	case view.EventPaint, view.EventFrameChange, view.EventBackingChange, view.EventVSync:
		return true
	default:
		return false
	}
}

func platformSurfaceTarget(w *engineWindow) backend.SurfaceTarget {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || !gw.running {
		return backend.SurfaceTarget{}
	}
	return backend.SurfaceTarget{
		Window: backend.WindowHandle{Kind: backend.HandleKindGLFW, Value: gw.id},
	}
}

func platformFrameSize(w *engineWindow) common.LogicalSize {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || !gw.running {
		return common.LogicalSize{}
	}
	width, height := gw.window.GetSize()
	return common.LogicalSize{Width: float64(width), Height: float64(height)}
}

// platformBackingScaleFactor reports framebuffer pixels per window unit. Minimized windows
// report a zero size on some platforms, so the monitor content scale stands in.
func platformBackingScaleFactor(w *engineWindow) float64 {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || !gw.running {
		return 1
	}
	ww, _ := gw.window.GetSize()
	fw, _ := gw.window.GetFramebufferSize()
	if ww > 0 && fw > 0 {
		return float64(fw) / float64(ww)
	}
	sx, _ := gw.window.GetContentScale()
	if sx <= 0 {
		return 1
	}
	return float64(sx)
}

// platformConvertSizeToBacking answers with the framebuffer size when asked about the window's
// current size, so the surface covers exactly the pixels GLFW allocated on each axis.
func platformConvertSizeToBacking(w *engineWindow, size common.LogicalSize) common.Size {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || !gw.running {
		return common.ConvertSizeToBacking(size, 1)
	}
	ww, wh := gw.window.GetSize()
	fw, fh := gw.window.GetFramebufferSize()
	return backingSize(size, ww, wh, fw, fh, platformBackingScaleFactor(w))
}

// backingSize maps size onto the fw x fh framebuffer when it equals the ww x wh window size,
// and otherwise scales it.
func backingSize(size common.LogicalSize, ww, wh, fw, fh int, scale float64) common.Size {
	if size.Width == float64(ww) && size.Height == float64(wh) && fw >= 0 && fh >= 0 {
		return common.Size{Width: uint32(fw), Height: uint32(fh)}
	}
	return common.ConvertSizeToBacking(size, scale)
}

func platformSetNeedsDisplay(w *engineWindow) {
	w.needsDisplay = true
	platformWake()
}

// platformStartVSync starts a refresh-rate timer whose ticks reach reg through the dispatcher.
func platformStartVSync(w *engineWindow, reg *registration) (func(), error) {
	if w.dispatcher == nil {
		return nil, errors.New("window has no dispatcher to deliver timer ticks")
	}
	d := w.dispatcher
	timer := startVSyncTimer(refreshInterval(w.refreshRate), func(fn func()) { d.Schedule(fn) }, func() {
		if !reg.removed {
			reg.fn()
		}
	})
	return timer.Stop, nil
}

func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	return ok && gw.running
}

func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || !gw.running {
		return errors.New("window is not open")
	}
	gw.running = false
	windowsMu.Lock()
	delete(windows, gw.id)
	windowsMu.Unlock()
	gw.window.Destroy()
	return nil
}
