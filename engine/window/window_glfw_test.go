//go:build !ios

package window

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-view/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// headlessWindow builds a window with no platform window behind it. Only the registration
// table and the platform-independent paths are usable.
func headlessWindow(opts ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		tileCount: 1,
		callbacks: make(map[view.EventKind]*registration),
		affinity:  common.NewThreadAffinity("Window"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func TestTilePosition(t *testing.T) {
	t.Run("single window is centered", func(t *testing.T) {
		x, y := tilePosition(0, 0, 1920, 1080, 1024, 768, 0, 1)
		assert.Equal(t, 448, x)
		assert.Equal(t, 156, y)
	})

	t.Run("two windows sit side by side", func(t *testing.T) {
		lx, ly := tilePosition(0, 0, 1920, 1080, 512, 768, 0, 2)
		rx, ry := tilePosition(0, 0, 1920, 1080, 512, 768, 1, 2)
		assert.Equal(t, 448, lx)
		assert.Equal(t, 960, rx)
		assert.Equal(t, ly, ry)
	})

	t.Run("work area offset is honored", func(t *testing.T) {
		x, y := tilePosition(100, 25, 1920, 1080, 1024, 768, 0, 1)
		assert.Equal(t, 548, x)
		assert.Equal(t, 181, y)
	})
}

func TestBackingSize(t *testing.T) {
	t.Run("current window size maps onto the framebuffer per axis", func(t *testing.T) {
		got := backingSize(common.LogicalSize{Width: 22, Height: 30}, 22, 30, 49, 66, 49.0/22.0)
		assert.Equal(t, common.Size{Width: 49, Height: 66}, got)
	})

	t.Run("other sizes are scaled", func(t *testing.T) {
		got := backingSize(common.LogicalSize{Width: 10, Height: 5}, 22, 30, 49, 66, 2)
		assert.Equal(t, common.Size{Width: 20, Height: 10}, got)
	})

	t.Run("minimized window has no pixels", func(t *testing.T) {
		got := backingSize(common.LogicalSize{}, 0, 0, 0, 0, 1.5)
		assert.True(t, got.IsZero())
	})

	t.Run("fractional ratios never lose a pixel", func(t *testing.T) {
		for _, scale := range []float64{1.25, 1.5, 1.75, 2.25} {
			for ww := 1; ww <= 2000; ww++ {
				fw := int(float64(ww)*scale + 0.5)
				got := backingSize(common.LogicalSize{Width: float64(ww), Height: float64(ww)}, ww, ww, fw, fw, float64(fw)/float64(ww))
				if !assert.Equal(t, uint32(fw), got.Width, "window %d framebuffer %d", ww, fw) {
					return
				}
			}
		}
	})
}

func TestRegisterAndFire(t *testing.T) {
	w := headlessWindow()
	var paints int

	reg, err := w.Register(view.EventPaint, func() { paints++ })
	require.NoError(t, err)

	w.fire(view.EventPaint)
	w.fire(view.EventFrameChange)
	assert.Equal(t, 1, paints)

	_, err = w.Register(view.EventPaint, func() {})
	assert.Error(t, err, "only one callback per kind may be live")

	reg.Remove()
	w.fire(view.EventPaint)
	assert.Equal(t, 1, paints)
	assert.NotPanics(t, reg.Remove)

	_, err = w.Register(view.EventPaint, func() {})
	assert.NoError(t, err, "a removed kind may be registered again")
}

func TestRegisterUnsupportedKind(t *testing.T) {
	w := headlessWindow()
	_, err := w.Register(view.EventLayout, func() {})
	assert.ErrorIs(t, err, view.ErrUnsupportedEvent)
}

func TestRegisterFromAnotherGoroutinePanics(t *testing.T) {
	w := headlessWindow()
	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		_, _ = w.Register(view.EventPaint, func() {})
	}()
	assert.NotNil(t, <-done)
}

func TestVSyncRegistration(t *testing.T) {
	t.Run("requires a dispatcher", func(t *testing.T) {
		w := headlessWindow()
		_, err := w.Register(view.EventVSync, func() {})
		assert.Error(t, err)
		assert.Empty(t, w.callbacks)
	})

	t.Run("ticks arrive through the dispatcher", func(t *testing.T) {
		d := dispatch.New(nil)
		w := headlessWindow(WithDispatcher(d), WithRefreshRate(1000))
		var ticks int

		reg, err := w.Register(view.EventVSync, func() { ticks++ })
		require.NoError(t, err)

		require.Eventually(t, func() bool { return d.Pending() > 0 }, time.Second, time.Millisecond)
		assert.Zero(t, ticks, "ticks only run when the UI thread drains")
		d.Drain()
		assert.Equal(t, 1, ticks)

		reg.Remove()
		d.Drain()
		time.Sleep(10 * time.Millisecond)
		assert.Zero(t, d.Pending())
	})

	t.Run("a tick queued before removal is dropped", func(t *testing.T) {
		d := dispatch.New(nil)
		w := headlessWindow(WithDispatcher(d), WithRefreshRate(1000))
		var ticks int

		reg, err := w.Register(view.EventVSync, func() { ticks++ })
		require.NoError(t, err)
		require.Eventually(t, func() bool { return d.Pending() > 0 }, time.Second, time.Millisecond)

		reg.Remove()
		d.Drain()
		assert.Zero(t, ticks)
	})
}

func TestRemoveAllStopsTimerFirst(t *testing.T) {
	d := dispatch.New(nil)
	w := headlessWindow(WithDispatcher(d), WithRefreshRate(1000))
	_, err := w.Register(view.EventPaint, func() {})
	require.NoError(t, err)
	_, err = w.Register(view.EventVSync, func() {})
	require.NoError(t, err)

	w.removeAll()
	assert.Empty(t, w.callbacks)
}

func TestRequestCloseUsesCallback(t *testing.T) {
	w := headlessWindow()
	var closes int
	w.SetCloseCallback(func() { closes++ })
	w.requestClose()
	assert.Equal(t, 1, closes)
}

func TestHeadlessWindowReportsNothing(t *testing.T) {
	w := headlessWindow()
	assert.True(t, w.SurfaceTarget().IsZero())
	assert.Equal(t, common.LogicalSize{}, w.FrameSize())
	assert.Equal(t, 1.0, w.BackingScaleFactor())
	assert.True(t, w.ConvertSizeToBacking(w.FrameSize()).IsZero())
	assert.False(t, w.IsRunning())
	assert.Error(t, w.Close())
}

func TestResolveUnknownGLFWTarget(t *testing.T) {
	_, ok, err := backend.ResolveSurfaceTarget(backend.SurfaceTarget{
		Window: backend.WindowHandle{Kind: backend.HandleKindGLFW, Value: 4242},
	})
	assert.True(t, ok)
	assert.ErrorIs(t, err, backend.ErrUnsupportedTarget)
}
