//go:build ios

package window

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -fmodules
#cgo LDFLAGS: -framework UIKit -framework QuartzCore -framework Metal -framework CoreFoundation

#include "window_ios.h"
*/
import "C"

import (
	"errors"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
)

// uikitWindow holds the UIKit view backing a Window. Each window is one CAMetalLayer-backed view
// arranged in a horizontal stack filling the key window.
type uikitWindow struct {
	parent  *engineWindow
	view    C.CFTypeRef
	running bool
}

var (
	// views maps native views to their windows for the exported callbacks.
	views = make(map[C.CFTypeRef]*uikitWindow)

	launchFn func() error
	updateFn func()
)

func init() {
	// UIKit must run on the main thread, which is where the Go main goroutine starts.
	runtime.LockOSThread()
}

// platformLaunch hands the main thread to UIApplicationMain, which never returns.
func platformLaunch(onLaunch func() error, update func()) error {
	launchFn = onLaunch
	updateFn = update
	C.oxy_runApplication()
	return errors.New("UIApplicationMain returned")
}

func platformWake() {
	C.oxy_wake()
}

//export oxyOnLaunch
func oxyOnLaunch() {
	common.Logger().Info("applicationDidFinishLaunching")
	if launchFn == nil {
		return
	}
	if err := launchFn(); err != nil {
		common.Logger().Error("launch failed", "err", err)
		os.Exit(1)
	}
}

//export oxyOnWake
func oxyOnWake() {
	if updateFn != nil {
		updateFn()
	}
}

//export oxyOnLayout
func oxyOnLayout(ref C.CFTypeRef) {
	if uw, ok := views[ref]; ok {
		uw.parent.fire(view.EventLayout)
	}
}

//export oxyOnDraw
func oxyOnDraw(ref C.CFTypeRef) {
	if uw, ok := views[ref]; ok {
		uw.parent.fire(view.EventPaint)
	}
}

//export oxyOnVSync
func oxyOnVSync(ref C.CFTypeRef) {
	if uw, ok := views[ref]; ok {
		uw.parent.fire(view.EventVSync)
	}
}

func newPlatformWindow(w *engineWindow) error {
	ref := C.oxy_newView()
	if ref == 0 {
		return errors.New("failed to create metal view")
	}
	uw := &uikitWindow{parent: w, view: ref, running: true}
	views[ref] = uw
	w.internalWindow = uw
	return nil
}

func platformSupports(kind view.EventKind) bool {
	switch kind {
	case view.EventPaint, view.EventLayout, view.EventVSync:
		return true
	default:
		return false
	}
}

func platformSurfaceTarget(w *engineWindow) backend.SurfaceTarget {
	uw, ok := w.internalWindow.(*uikitWindow)
	if !ok || !uw.running {
		return backend.SurfaceTarget{}
	}
	return backend.SurfaceTarget{
		Window: backend.WindowHandle{Kind: backend.HandleKindMetalLayer, Value: uintptr(C.oxy_metalLayer(uw.view))},
	}
}

func platformFrameSize(w *engineWindow) common.LogicalSize {
	uw, ok := w.internalWindow.(*uikitWindow)
	if !ok || !uw.running {
		return common.LogicalSize{}
	}
	var width, height C.double
	C.oxy_viewSize(uw.view, &width, &height)
	return common.LogicalSize{Width: float64(width), Height: float64(height)}
}

func platformBackingScaleFactor(w *engineWindow) float64 {
	uw, ok := w.internalWindow.(*uikitWindow)
	if !ok || !uw.running {
		return 1
	}
	return float64(C.oxy_contentScale(uw.view))
}

func platformConvertSizeToBacking(w *engineWindow, size common.LogicalSize) common.Size {
	return common.ConvertSizeToBacking(size, platformBackingScaleFactor(w))
}

func platformSetNeedsDisplay(w *engineWindow) {
	if uw, ok := w.internalWindow.(*uikitWindow); ok && uw.running {
		C.oxy_setNeedsDisplay(uw.view)
	}
}

// platformStartVSync drives reg from a CADisplayLink on the main run loop.
func platformStartVSync(w *engineWindow, reg *registration) (func(), error) {
	uw, ok := w.internalWindow.(*uikitWindow)
	if !ok || !uw.running {
		return nil, errors.New("window is not open")
	}
	C.oxy_startDisplayLink(uw.view)
	return func() {
		if uw.running {
			C.oxy_stopDisplayLink(uw.view)
		}
	}, nil
}

func platformIsRunningCheck(w *engineWindow) bool {
	uw, ok := w.internalWindow.(*uikitWindow)
	return ok && uw.running
}

func platformCloseWindow(w *engineWindow) error {
	uw, ok := w.internalWindow.(*uikitWindow)
	if !ok || !uw.running {
		return errors.New("window is not open")
	}
	uw.running = false
	delete(views, uw.view)
	C.oxy_removeView(uw.view)
	return nil
}
