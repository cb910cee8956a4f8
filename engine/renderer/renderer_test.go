package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFrameCounter struct {
	frames int
	closed int
}

func (c *countingFrameCounter) RecordFrame() { c.frames++ }
func (c *countingFrameCounter) Close()       { c.closed++ }

var testTarget = backend.SurfaceTarget{
	Window: backend.WindowHandle{Kind: backend.HandleKindMetalLayer, Value: 0xbeef},
}

func newTestSurface(t *testing.T, b *backendtest.Backend, w, h uint32, scale float64, opts ...RenderSurfaceBuilderOption) RenderSurface {
	t.Helper()
	s, err := NewRenderSurface(b, testTarget, w, h, scale, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestNewRenderSurfaceSeedsUniformAndConfiguration(t *testing.T) {
	b := backendtest.New()
	s := newTestSurface(t, b, 800, 600, 2.0)

	assert.Equal(t, float32(400), s.UniformValue())
	assert.Equal(t, float32(400), b.Uniform())
	assert.Equal(t, common.SurfaceConfiguration{
		Width:       800,
		Height:      600,
		PresentMode: common.PresentModeVSync,
		Format:      backendtest.DefaultFormat,
	}, s.Configuration())
	assert.Equal(t, s.Configuration(), b.Configuration())
	assert.Equal(t, testTarget, b.Target())
}

func TestNewRenderSurfacePipelineDescriptor(t *testing.T) {
	b := backendtest.New()
	newTestSurface(t, b, 100, 100, 1)

	desc := b.Pipeline()
	assert.Equal(t, "vs_main", desc.VertexEntryPoint)
	assert.Equal(t, "fs_main", desc.FragmentEntryPoint)
	assert.Equal(t, backendtest.DefaultFormat, desc.TargetFormat)
	assert.EqualValues(t, 4, desc.UniformMinBindingSize)
	assert.Contains(t, b.Shader(), "fn vs_main")
	assert.Contains(t, b.Shader(), "fn fs_main")
}

func TestScenarioCreateThenResizeUniform(t *testing.T) {
	b := backendtest.New()
	s := newTestSurface(t, b, 800, 600, 2.0)
	require.Equal(t, float32(400), b.Uniform())

	require.NoError(t, s.Resize(1600, 1200, 2.0))

	assert.Equal(t, float32(800), s.UniformValue())
	assert.Equal(t, float32(800), b.Uniform())
	assert.Equal(t, common.Size{Width: 1600, Height: 1200}, s.Configuration().Size())
}

func TestResizeLastWriteWins(t *testing.T) {
	sequences := [][][3]float64{
		{{100, 100, 1}},
		{{100, 100, 1}, {200, 50, 2}},
		{{640, 480, 1}, {1, 1, 1}, {3840, 2160, 3}, {1280, 720, 1.5}},
		{{7, 9, 0.5}, {7, 9, 0.5}, {9, 7, 2}},
	}
	for i, seq := range sequences {
		t.Run(fmt.Sprintf("sequence %d", i), func(t *testing.T) {
			b := backendtest.New()
			s := newTestSurface(t, b, 10, 10, 1)
			for _, call := range seq {
				require.NoError(t, s.Resize(uint32(call[0]), uint32(call[1]), call[2]))
			}
			last := seq[len(seq)-1]
			want := common.Size{Width: uint32(last[0]), Height: uint32(last[1])}
			assert.Equal(t, want, s.Configuration().Size())
			assert.Equal(t, want, b.Configuration().Size())
			assert.Equal(t, float32(last[0]/last[2]), b.Uniform())
		})
	}
}

func TestResizeIsIdempotent(t *testing.T) {
	once := backendtest.New()
	s1 := newTestSurface(t, once, 50, 50, 1)
	require.NoError(t, s1.Resize(100, 100, 1.0))

	twice := backendtest.New()
	s2 := newTestSurface(t, twice, 50, 50, 1)
	require.NoError(t, s2.Resize(100, 100, 1.0))
	require.NoError(t, s2.Resize(100, 100, 1.0))

	assert.Equal(t, s1.Configuration(), s2.Configuration())
	assert.Equal(t, s1.UniformValue(), s2.UniformValue())
	assert.Equal(t, once.Configuration(), twice.Configuration())
}

func TestResizeThenRedrawSeesNewSize(t *testing.T) {
	b := backendtest.New()
	s := newTestSurface(t, b, 800, 600, 1)

	require.NoError(t, s.Redraw())
	require.NoError(t, s.Resize(1024, 768, 1))
	require.NoError(t, s.Redraw())

	acquired := b.Acquired()
	require.Len(t, acquired, 2)
	assert.Equal(t, common.Size{Width: 800, Height: 600}, acquired[0].Size())
	assert.Equal(t, common.Size{Width: 1024, Height: 768}, acquired[1].Size())
}

func TestRedrawRecordsOneTriangleFrame(t *testing.T) {
	b := backendtest.New()
	fc := &countingFrameCounter{}
	s := newTestSurface(t, b, 320, 240, 1, WithFrameCounter(fc))

	require.NoError(t, s.Redraw())

	assert.Equal(t, 1, fc.frames)
	assert.Equal(t, 1, b.Draws())
	assert.Equal(t, 1, b.Presents())
	assert.Equal(t, common.ColorGreen, b.ClearColor())

	order := []string{
		"CurrentTexture 320x240",
		"Create TextureView",
		"Create CommandEncoder",
		"Create RenderPass",
		"SetPipeline",
		"SetBindGroup 0",
		"Draw 3 1 0 0",
		"End",
		"Release RenderPass",
		"Create CommandBuffer",
		"Submit 1",
		"Present",
	}
	prev := -1
	for _, ev := range order {
		idx := b.Index(ev)
		require.GreaterOrEqual(t, idx, 0, "missing event %q", ev)
		assert.Greater(t, idx, prev, "event %q out of order", ev)
		prev = idx
	}

	// per-frame objects do not outlive the frame
	live := b.Live()
	for _, kind := range []string{"Texture", "TextureView", "CommandEncoder", "RenderPass", "CommandBuffer"} {
		assert.NotContains(t, live, kind)
	}
}

func TestRedrawRetriesOnceWhenOutdated(t *testing.T) {
	b := backendtest.New()
	fc := &countingFrameCounter{}
	s := newTestSurface(t, b, 800, 600, 1, WithFrameCounter(fc))
	b.QueueAcquireError(fmt.Errorf("%w: swap chain", backend.ErrSurfaceOutdated))

	require.NoError(t, s.Redraw())

	assert.Equal(t, 2, b.Count("Configure 800x600 vsync"))
	assert.Equal(t, 1, b.Presents())
	assert.Equal(t, 1, fc.frames)
}

func TestRedrawFailsWhenStillOutdated(t *testing.T) {
	b := backendtest.New()
	fc := &countingFrameCounter{}
	s := newTestSurface(t, b, 800, 600, 1, WithFrameCounter(fc))
	b.QueueAcquireError(backend.ErrSurfaceOutdated)
	b.QueueAcquireError(backend.ErrSurfaceOutdated)

	err := s.Redraw()

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrSurfaceOutdated)
	assert.Zero(t, b.Presents())
	assert.Zero(t, fc.frames)
}

func TestRedrawSurfaceLostIsNotRetried(t *testing.T) {
	b := backendtest.New()
	s := newTestSurface(t, b, 800, 600, 1)
	b.QueueAcquireError(backend.ErrSurfaceLost)

	err := s.Redraw()

	assert.ErrorIs(t, err, backend.ErrSurfaceLost)
	assert.Equal(t, 1, b.Count("Configure 800x600 vsync"))
}

func TestNewRenderSurfaceFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		setup  func(b *backendtest.Backend)
		target backend.SurfaceTarget
		want   error
	}{
		{"no adapter", func(b *backendtest.Backend) { b.AdapterErr = boom }, testTarget, backend.ErrNoAdapter},
		{"no device", func(b *backendtest.Backend) { b.DeviceErr = boom }, testTarget, backend.ErrNoDevice},
		{"shader", func(b *backendtest.Backend) { b.ShaderErr = boom }, testTarget, ErrShaderCompile},
		{"pipeline", func(b *backendtest.Backend) { b.PipelineErr = boom }, testTarget, ErrPipeline},
		{"instance", func(b *backendtest.Backend) { b.InstanceErr = boom }, testTarget, boom},
		{"unsupported target", func(b *backendtest.Backend) {}, backend.SurfaceTarget{}, backend.ErrUnsupportedTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := backendtest.New()
			tt.setup(b)
			fc := &countingFrameCounter{}

			s, err := NewRenderSurface(b, tt.target, 640, 480, 1, WithFrameCounter(fc))

			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, b.Live(), "partially created resources must be released")
			assert.Equal(t, 1, fc.closed)
		})
	}
}

func TestReleaseOrder(t *testing.T) {
	b := backendtest.New()
	fc := &countingFrameCounter{}
	s, err := NewRenderSurface(b, testTarget, 640, 480, 1, WithFrameCounter(fc))
	require.NoError(t, err)

	s.Release()
	s.Release()

	order := []string{
		"Release BindGroup",
		"Release RenderPipeline",
		"Release ShaderModule",
		"Release Buffer",
		"Release Queue",
		"Release Device",
		"Release Surface",
		"Release Adapter",
		"Release Instance",
	}
	prev := -1
	for _, ev := range order {
		idx := b.Index(ev)
		require.GreaterOrEqual(t, idx, 0, "missing event %q", ev)
		assert.Greater(t, idx, prev, "event %q out of order", ev)
		prev = idx
	}
	assert.Empty(t, b.Live())
	assert.Equal(t, 1, b.Count("Release Instance"))
	assert.Equal(t, 1, fc.closed)
}

func TestRedrawAfterReleasePanics(t *testing.T) {
	b := backendtest.New()
	s, err := NewRenderSurface(b, testTarget, 640, 480, 1)
	require.NoError(t, err)
	s.Release()

	assert.Panics(t, func() { _ = s.Redraw() })
	assert.Panics(t, func() { _ = s.Resize(1, 1, 1) })
}

func TestCallsFromAnotherGoroutinePanic(t *testing.T) {
	b := backendtest.New()
	s := newTestSurface(t, b, 640, 480, 1)

	recovered := make(chan any, 1)
	go func() {
		defer func() { recovered <- recover() }()
		_ = s.Resize(10, 10, 1)
	}()

	r := <-recovered
	require.NotNil(t, r)
	assert.Contains(t, fmt.Sprint(r), "RenderSurface.Resize")
	assert.Equal(t, common.Size{Width: 640, Height: 480}, s.Configuration().Size())
}

const customShader = `
@group(0) @binding(0) var<uniform> width_pt: f32;

@vertex
fn main_v(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(i) / width_pt, 0.0, 0.0, 1.0);
}

@fragment
fn main_f() -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 1.0, 1.0);
}
`

func TestRejectedShaderSources(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"no fragment stage", "@group(0) @binding(0) var<uniform> w: f32;\n@vertex fn vs() {}"},
		{"no uniform", "@vertex fn vs() {}\n@fragment fn fs() {}"},
		{"storage instead of uniform", "@group(0) @binding(0) var<storage, read> w: f32;\n@vertex fn vs() {}\n@fragment fn fs() {}"},
		{"wrong uniform size", "@group(0) @binding(0) var<uniform> w: vec4<f32>;\n@vertex fn vs() {}\n@fragment fn fs() {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := backendtest.New()
			s, err := NewRenderSurface(b, testTarget, 640, 480, 1, WithShaderSource(tt.source))

			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrShaderCompile)
			assert.Empty(t, b.Live())
			assert.Zero(t, b.Count("Create Instance"), "shader problems are caught before touching the GPU")
		})
	}
}

func TestOptions(t *testing.T) {
	b := backendtest.New()
	red := common.Color{R: 1, A: 1}
	s := newTestSurface(t, b, 640, 480, 1,
		WithPresentMode(common.PresentModeImmediate),
		WithClearColor(red),
		WithForceFallbackAdapter(true),
		WithShaderSource(customShader),
		WithLabel("Custom"),
	)

	require.NoError(t, s.Redraw())

	assert.Equal(t, common.PresentModeImmediate, s.Configuration().PresentMode)
	assert.Equal(t, common.PresentModeImmediate, b.Configuration().PresentMode)
	assert.Equal(t, red, b.ClearColor())
	assert.True(t, b.ForcedFallback())
	assert.Equal(t, customShader, b.Shader())
	assert.Equal(t, "main_v", b.Pipeline().VertexEntryPoint)
	assert.Equal(t, "main_f", b.Pipeline().FragmentEntryPoint)
	assert.Equal(t, "Custom", b.Pipeline().Label)
}
