package view

import (
	"errors"
	"fmt"
	"maps"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeView is a NativeView recording registrations, removals and display requests.
type fakeView struct {
	gpu          *backendtest.Backend
	frame        common.LogicalSize
	scale        float64
	callbacks    map[EventKind]func()
	unsupported  map[EventKind]bool
	needsDisplay int
	removed      []EventKind
	// liveAtRemove snapshots the backend's live GPU handles at each Remove.
	liveAtRemove []map[string]int
}

type fakeRegistration struct {
	v    *fakeView
	kind EventKind
	done bool
}

func newFakeView(gpu *backendtest.Backend, w, h, scale float64) *fakeView {
	return &fakeView{
		gpu:         gpu,
		frame:       common.LogicalSize{Width: w, Height: h},
		scale:       scale,
		callbacks:   make(map[EventKind]func()),
		unsupported: map[EventKind]bool{EventLayout: true},
	}
}

func (v *fakeView) SurfaceTarget() backend.SurfaceTarget {
	return backend.SurfaceTarget{Window: backend.WindowHandle{Kind: backend.HandleKindGLFW, Value: 1}}
}

func (v *fakeView) FrameSize() common.LogicalSize { return v.frame }

func (v *fakeView) ConvertSizeToBacking(size common.LogicalSize) common.Size {
	return common.ConvertSizeToBacking(size, v.scale)
}

func (v *fakeView) BackingScaleFactor() float64 { return v.scale }

func (v *fakeView) SetNeedsDisplay() { v.needsDisplay++ }

func (v *fakeView) Register(kind EventKind, fn func()) (Registration, error) {
	if v.unsupported[kind] {
		return nil, ErrUnsupportedEvent
	}
	v.callbacks[kind] = fn
	return &fakeRegistration{v: v, kind: kind}, nil
}

func (r *fakeRegistration) Remove() {
	if r.done {
		return
	}
	r.done = true
	delete(r.v.callbacks, r.kind)
	r.v.removed = append(r.v.removed, r.kind)
	r.v.liveAtRemove = append(r.v.liveAtRemove, r.v.gpu.Live())
}

func (v *fakeView) fire(kind EventKind) {
	if fn, ok := v.callbacks[kind]; ok {
		fn()
	}
}

func (v *fakeView) setFrame(w, h float64) {
	v.frame = common.LogicalSize{Width: w, Height: h}
}

type fatalRecorder struct {
	steps []string
	errs  []error
}

func (f *fatalRecorder) handle(step string, err error) {
	f.steps = append(f.steps, step)
	f.errs = append(f.errs, err)
}

// frameHook runs fn every time a frame is recorded, from inside RenderSurface.Redraw.
type frameHook struct{ fn func() }

func (h *frameHook) RecordFrame() {
	if h.fn != nil {
		h.fn()
	}
}
func (h *frameHook) Close() {}

func attachedBridge(t *testing.T, v *fakeView, variant Variant, opts ...BridgeBuilderOption) (*Bridge, *fatalRecorder) {
	t.Helper()
	fatal := &fatalRecorder{}
	opts = append([]BridgeBuilderOption{WithVariant(variant), WithFatalHandler(fatal.handle)}, opts...)
	br := NewBridge(v, v.gpu, opts...)
	require.NoError(t, br.Attach())
	t.Cleanup(br.Teardown)
	return br, fatal
}

func TestAttachCreatesSurfaceAtBackingSize(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 2)

	br, _ := attachedBridge(t, v, Variant{})

	assert.Equal(t, StateReady, br.State())
	require.NotNil(t, br.Surface())
	assert.Equal(t, common.Size{Width: 800, Height: 600}, br.Size())
	assert.Equal(t, common.Size{Width: 800, Height: 600}, gpu.Configuration().Size())
	assert.Equal(t, float32(400), gpu.Uniform())
	assert.Contains(t, v.callbacks, EventPaint)
	assert.Contains(t, v.callbacks, EventFrameChange)
	assert.Contains(t, v.callbacks, EventBackingChange)
	assert.NotContains(t, v.callbacks, EventVSync)
	assert.Empty(t, gpu.Acquired(), "no frame is drawn before the first paint")
}

func TestAttachDefersSurfaceUntilFirstNonZeroLayout(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 0, 0, 2)

	br, _ := attachedBridge(t, v, Variant{})

	assert.Equal(t, StateInitializing, br.State())
	assert.Nil(t, br.Surface())
	assert.Empty(t, gpu.Live())

	// paints before the surface exists are ignored
	v.fire(EventPaint)
	assert.Empty(t, gpu.Acquired())

	v.setFrame(512, 0)
	v.fire(EventFrameChange)
	assert.Equal(t, StateInitializing, br.State())

	v.setFrame(512, 384)
	v.fire(EventFrameChange)
	assert.Equal(t, StateReady, br.State())
	assert.Equal(t, common.Size{Width: 1024, Height: 768}, gpu.Configuration().Size())
}

func TestPlaceholderFrameIsResizedByContainer(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 1, 1, 2)
	br, _ := attachedBridge(t, v, Variant{})
	require.Equal(t, common.Size{Width: 2, Height: 2}, br.Size())

	v.setFrame(512, 768)
	v.fire(EventFrameChange)
	v.fire(EventPaint)

	acquired := gpu.Acquired()
	require.Len(t, acquired, 1)
	assert.Equal(t, common.Size{Width: 1024, Height: 1536}, acquired[0].Size())
}

func TestPaintRedraws(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 200, 100, 1)
	attachedBridge(t, v, Variant{})

	v.fire(EventPaint)
	v.fire(EventPaint)

	assert.Equal(t, 2, gpu.Presents())
}

func TestPaintSkippedAtZeroSize(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 200, 100, 1)
	br, fatal := attachedBridge(t, v, Variant{EagerRedraw: true})
	require.Equal(t, 1, gpu.Presents())

	v.setFrame(0, 100)
	v.fire(EventFrameChange)
	v.fire(EventPaint)

	assert.True(t, br.Size().IsZero())
	assert.Equal(t, 1, gpu.Presents())
	assert.Empty(t, fatal.steps)
	assert.Equal(t, common.Size{Width: 200, Height: 100}, gpu.Configuration().Size())

	v.setFrame(300, 100)
	v.fire(EventFrameChange)
	assert.Equal(t, 2, gpu.Presents())
	assert.Equal(t, common.Size{Width: 300, Height: 100}, gpu.Configuration().Size())
}

func TestResizeThenEagerRedrawObservesNewSize(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	attachedBridge(t, v, Variant{EagerRedraw: true})

	v.setFrame(640, 480)
	v.fire(EventFrameChange)

	acquired := gpu.Acquired()
	require.Len(t, acquired, 2)
	assert.Equal(t, common.Size{Width: 400, Height: 300}, acquired[0].Size())
	assert.Equal(t, common.Size{Width: 640, Height: 480}, acquired[1].Size())
	assert.Less(t, gpu.Index("Configure 640x480 vsync"), gpu.Index("CurrentTexture 640x480"))
}

func TestBackingChangeRecomputesPixelSize(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	attachedBridge(t, v, Variant{})

	v.scale = 2
	v.fire(EventBackingChange)

	assert.Equal(t, common.Size{Width: 800, Height: 600}, gpu.Configuration().Size())
	assert.Equal(t, float32(400), gpu.Uniform())
}

func TestVSyncMarksNeedsDisplayWithoutEagerRedraw(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	attachedBridge(t, v, Variant{Trigger: RedrawOnVSyncTimer})
	require.Contains(t, v.callbacks, EventVSync)

	v.fire(EventVSync)
	v.fire(EventVSync)

	assert.Equal(t, 2, v.needsDisplay)
	assert.Zero(t, gpu.Presents())
}

func TestVSyncRedrawsEagerly(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	attachedBridge(t, v, Variant{Trigger: RedrawOnVSyncTimer, EagerRedraw: true})
	require.Equal(t, 1, gpu.Presents())

	v.fire(EventVSync)

	assert.Equal(t, 2, gpu.Presents())
	assert.Zero(t, v.needsDisplay)
}

func TestOverlappingTriggersAreNotCoalesced(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	attachedBridge(t, v, Variant{Trigger: RedrawOnVSyncTimer, EagerRedraw: true})

	v.setFrame(500, 300)
	v.fire(EventFrameChange)
	v.fire(EventVSync)

	// creation, resize and tick each produce a frame
	assert.Equal(t, 3, gpu.Presents())
	for _, cfg := range gpu.Acquired()[1:] {
		assert.Equal(t, common.Size{Width: 500, Height: 300}, cfg.Size())
	}
}

func TestVSyncDuringPaintIsDeferredThroughDispatcher(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	d := dispatch.New(nil)
	hook := &frameHook{}
	br, _ := attachedBridge(t, v, Variant{Trigger: RedrawOnVSyncTimer},
		WithDispatcher(d),
		WithSurfaceOptions(renderer.WithFrameCounter(hook)),
	)
	hook.fn = br.VSync

	v.fire(EventPaint)

	assert.Zero(t, v.needsDisplay)
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, 1, d.Drain())
	assert.Equal(t, 1, v.needsDisplay)
}

func TestTeardownDeregistersBeforeReleasing(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	br := NewBridge(v, gpu, WithVariant(Variant{Trigger: RedrawOnVSyncTimer}))
	require.NoError(t, br.Attach())
	liveBefore := gpu.Live()
	require.Contains(t, liveBefore, "Surface")

	br.Teardown()

	require.NotEmpty(t, v.removed)
	assert.Equal(t, EventVSync, v.removed[0], "timer is removed first")
	assert.ElementsMatch(t, []EventKind{EventVSync, EventFrameChange, EventBackingChange, EventPaint}, v.removed)
	for i, live := range v.liveAtRemove {
		assert.True(t, maps.Equal(liveBefore, live), "GPU resources released before removing %s", v.removed[i])
	}
	assert.Equal(t, 1, gpu.Count("Release Surface"))
	assert.Empty(t, gpu.Live())
	assert.Equal(t, StateTornDown, br.State())
	assert.Nil(t, br.Surface())

	assert.NotPanics(t, br.Teardown)
	assert.Len(t, v.removed, 4)
}

func TestCallbacksOutsideLifecyclePanic(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	br := NewBridge(v, gpu, WithVariant(Variant{}))

	assert.Panics(t, br.Paint)
	assert.Panics(t, br.FrameChanged)
	assert.Panics(t, br.VSync)

	require.NoError(t, br.Attach())
	assert.Panics(t, func() { _ = br.Attach() })

	br.Teardown()
	assert.Panics(t, br.Paint)
	assert.Panics(t, br.FrameChanged)
	assert.Panics(t, br.VSync)
}

func TestCallbackFromAnotherGoroutinePanics(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	br, _ := attachedBridge(t, v, Variant{})

	recovered := make(chan any, 1)
	go func() {
		defer func() { recovered <- recover() }()
		br.Paint()
	}()

	r := <-recovered
	require.NotNil(t, r)
	assert.Contains(t, fmt.Sprint(r), "Bridge.Paint")
	assert.Zero(t, gpu.Presents())
}

func TestAttachFailureIsReturnedAndTearsDown(t *testing.T) {
	gpu := backendtest.New()
	gpu.AdapterErr = errors.New("no vulkan")
	v := newFakeView(gpu, 400, 300, 1)
	br := NewBridge(v, gpu, WithVariant(Variant{}))

	err := br.Attach()

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrNoAdapter)
	assert.Equal(t, StateTornDown, br.State())
	assert.Empty(t, v.callbacks)
	assert.Empty(t, gpu.Live())
}

func TestLazyCreationFailureIsFatal(t *testing.T) {
	gpu := backendtest.New()
	gpu.DeviceErr = errors.New("lost")
	v := newFakeView(gpu, 0, 0, 1)
	br, fatal := attachedBridge(t, v, Variant{})

	v.setFrame(100, 100)
	v.fire(EventFrameChange)

	require.Equal(t, []string{"create render surface"}, fatal.steps)
	assert.ErrorIs(t, fatal.errs[0], backend.ErrNoDevice)
	assert.Equal(t, StateInitializing, br.State())
}

func TestRedrawFailureIsFatal(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	_, fatal := attachedBridge(t, v, Variant{})
	gpu.QueueAcquireError(backend.ErrSurfaceLost)

	v.fire(EventPaint)

	require.Equal(t, []string{"redraw"}, fatal.steps)
	assert.ErrorIs(t, fatal.errs[0], backend.ErrSurfaceLost)
}

func TestVariantPresentModeReachesSurface(t *testing.T) {
	gpu := backendtest.New()
	v := newFakeView(gpu, 400, 300, 1)
	attachedBridge(t, v, Variant{PresentMode: common.PresentModeImmediate})

	assert.Equal(t, common.PresentModeImmediate, gpu.Configuration().PresentMode)
}

func TestEventKindAndStateStrings(t *testing.T) {
	assert.Equal(t, "vsync", EventVSync.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "updateLayer", PaintStyleLayer.callbackName())
	assert.Equal(t, "drawRect:", PaintStyleDrawRect.callbackName())
}
