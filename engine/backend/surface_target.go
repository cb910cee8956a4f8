package backend

import (
	"fmt"
	"sync"
)

// HandleKind identifies the platform a raw handle value belongs to.
type HandleKind int

const (
	// HandleKindNone marks an empty handle.
	HandleKindNone HandleKind = iota
	// HandleKindGLFW is an opaque window id issued by the desktop host. It is resolved into a
	// real surface descriptor by the resolver the host registers for this kind.
	HandleKindGLFW
	// HandleKindMetalLayer is a CAMetalLayer pointer value (UIKit or AppKit views).
	HandleKindMetalLayer
)

func (k HandleKind) String() string {
	switch k {
	case HandleKindNone:
		return "none"
	case HandleKindGLFW:
		return "glfw"
	case HandleKindMetalLayer:
		return "metal-layer"
	default:
		return fmt.Sprintf("HandleKind(%d)", int(k))
	}
}

// WindowHandle identifies a native drawable.
type WindowHandle struct {
	Kind  HandleKind
	Value uintptr
}

// DisplayHandle identifies the platform display connection of a native drawable.
// Platforms without a display connection (AppKit, UIKit, GLFW ids) leave Value zero.
type DisplayHandle struct {
	Kind  HandleKind
	Value uintptr
}

// SurfaceTarget is the capability pair uniquely identifying a native drawable and its display
// connection. It only carries integers: it may be copied to and stored on any goroutine, but the
// values are only meaningful to the backend on the view's own thread. Nothing in this module
// dereferences them anywhere else.
type SurfaceTarget struct {
	Window  WindowHandle
	Display DisplayHandle
}

// IsZero reports whether the target identifies nothing.
func (t SurfaceTarget) IsZero() bool {
	return t.Window.Kind == HandleKindNone && t.Window.Value == 0
}

func (t SurfaceTarget) String() string {
	return fmt.Sprintf("%s:%#x/%s:%#x", t.Window.Kind, t.Window.Value, t.Display.Kind, t.Display.Value)
}

// SurfaceResolver turns a SurfaceTarget of a host-specific kind into a backend-specific surface
// descriptor. The returned value's type is agreed between the host and the backend (for the
// wgpu backend it is *wgpu.SurfaceDescriptor).
type SurfaceResolver func(target SurfaceTarget) (any, error)

var (
	resolversMu sync.RWMutex
	resolvers   = make(map[HandleKind]SurfaceResolver)
)

// RegisterSurfaceResolver installs the resolver for targets of the given kind, replacing any
// previous one. Hosts that issue opaque ids (the desktop GLFW host) call this from init.
//
// Parameters:
//   - kind: the handle kind the resolver understands
//   - resolver: the resolver, or nil to remove the registration
func RegisterSurfaceResolver(kind HandleKind, resolver SurfaceResolver) {
	resolversMu.Lock()
	defer resolversMu.Unlock()
	if resolver == nil {
		delete(resolvers, kind)
		return
	}
	resolvers[kind] = resolver
}

// ResolveSurfaceTarget runs the resolver registered for target's window kind.
//
// Returns:
//   - any: the backend-specific descriptor
//   - bool: false if no resolver is registered for the kind
//   - error: the resolver's error
func ResolveSurfaceTarget(target SurfaceTarget) (any, bool, error) {
	resolversMu.RLock()
	r, ok := resolvers[target.Window.Kind]
	resolversMu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	desc, err := r(target)
	return desc, true, err
}
