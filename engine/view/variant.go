package view

import "github.com/Carmen-Shannon/oxy-view/common"

// PaintStyle selects which OS paint callback drives redraws. Exactly one is active.
type PaintStyle int

const (
	// PaintStyleLayer uses the layer-backed update callback.
	PaintStyleLayer PaintStyle = iota
	// PaintStyleDrawRect uses the legacy immediate-mode draw callback.
	PaintStyleDrawRect
)

// callbackName is the native callback name the paint style is delivered through.
func (p PaintStyle) callbackName() string {
	if p == PaintStyleDrawRect {
		return "drawRect:"
	}
	return "updateLayer"
}

// RedrawTrigger selects what produces steady-state redraws besides OS paints.
type RedrawTrigger int

const (
	// RedrawOnEvent redraws only in response to OS paint and resize events.
	RedrawOnEvent RedrawTrigger = iota
	// RedrawOnVSyncTimer additionally redraws on every vsync-aligned timer tick.
	RedrawOnVSyncTimer
)

// Layout selects how many views a window hosts.
type Layout int

const (
	// LayoutSingle installs one view as the window's content.
	LayoutSingle Layout = iota
	// LayoutSideBySide installs two views filling the window equally, left and right.
	LayoutSideBySide
)

// Variant is the compile-time feature selection of the view bridge and its hosts.
type Variant struct {
	// PaintStyle is the OS paint callback in use.
	PaintStyle PaintStyle
	// PresentMode is the presentation mode of every render surface.
	PresentMode common.PresentMode
	// Trigger selects on-event or vsync-timer driven redraws.
	Trigger RedrawTrigger
	// EagerRedraw redraws immediately after surface creation, after every resize and on every
	// timer tick, instead of waiting for the OS paint.
	EagerRedraw bool
	// Layout is the single or side-by-side view layout.
	Layout Layout
}

// buildVariant is adjusted by the oxy_* build tags in the variant_*.go files.
var buildVariant = Variant{
	PaintStyle:  PaintStyleLayer,
	PresentMode: common.PresentModeVSync,
	Trigger:     RedrawOnEvent,
	EagerRedraw: false,
	Layout:      LayoutSingle,
}

// BuildVariant returns the feature selection this binary was compiled with.
//
// Returns:
//   - Variant: the build's variant
func BuildVariant() Variant {
	return buildVariant
}
