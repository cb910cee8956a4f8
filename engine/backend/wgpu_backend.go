package backend

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBackend is the Backend implementation over github.com/cogentcore/webgpu.
type wgpuBackend struct{}

type wgpuInstance struct {
	instance *wgpu.Instance
}

type wgpuAdapter struct {
	adapter  *wgpu.Adapter
	fallback bool
}

type wgpuDevice struct {
	device *wgpu.Device
}

type wgpuQueue struct {
	queue *wgpu.Queue
}

type wgpuSurface struct {
	surface *wgpu.Surface
	// alphaMode is captured at DefaultConfig time and reused by every Configure.
	alphaMode wgpu.CompositeAlphaMode
}

type wgpuTexture struct {
	surface *wgpu.Surface
	texture *wgpu.Texture
}

type wgpuTextureView struct{ view *wgpu.TextureView }

type wgpuShaderModule struct{ module *wgpu.ShaderModule }

type wgpuBuffer struct{ buffer *wgpu.Buffer }

type wgpuBindGroup struct{ group *wgpu.BindGroup }

type wgpuCommandBuffer struct{ buffer *wgpu.CommandBuffer }

// wgpuRenderPipeline keeps the layouts it was built from so bind groups can be created
// against group 0 and everything can be released together.
type wgpuRenderPipeline struct {
	pipeline        *wgpu.RenderPipeline
	pipelineLayout  *wgpu.PipelineLayout
	bindGroupLayout *wgpu.BindGroupLayout
}

type wgpuCommandEncoder struct{ encoder *wgpu.CommandEncoder }

type wgpuRenderPass struct{ pass *wgpu.RenderPassEncoder }

var (
	_ Backend        = wgpuBackend{}
	_ Instance       = &wgpuInstance{}
	_ Adapter        = &wgpuAdapter{}
	_ Device         = &wgpuDevice{}
	_ Queue          = &wgpuQueue{}
	_ Surface        = &wgpuSurface{}
	_ Texture        = &wgpuTexture{}
	_ RenderPipeline = &wgpuRenderPipeline{}
	_ CommandEncoder = &wgpuCommandEncoder{}
	_ RenderPass     = &wgpuRenderPass{}
)

// NewWGPUBackend returns the WebGPU-native Backend.
//
// Returns:
//   - Backend: a backend creating real GPU resources
func NewWGPUBackend() Backend {
	return wgpuBackend{}
}

func (wgpuBackend) CreateInstance() (Instance, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, errors.New("wgpu: failed to create instance")
	}
	return &wgpuInstance{instance: inst}, nil
}

func (i *wgpuInstance) CreateSurface(target SurfaceTarget) (Surface, error) {
	desc, err := surfaceDescriptor(target)
	if err != nil {
		return nil, err
	}
	s := i.instance.CreateSurface(desc)
	if s == nil {
		return nil, fmt.Errorf("wgpu: failed to create surface for %s", target)
	}
	return &wgpuSurface{surface: s}, nil
}

func (i *wgpuInstance) RequestAdapter(compatible Surface, forceFallback bool) (Adapter, error) {
	opts := &wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallback,
	}
	if s, ok := compatible.(*wgpuSurface); ok && s != nil {
		opts.CompatibleSurface = s.surface
	}
	a, err := i.instance.RequestAdapter(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	if a == nil {
		return nil, ErrNoAdapter
	}
	return &wgpuAdapter{adapter: a, fallback: forceFallback}, nil
}

func (i *wgpuInstance) Release() {
	i.instance.Release()
}

func (a *wgpuAdapter) RequestDevice() (Device, Queue, error) {
	d, err := a.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Triangle Device",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if d == nil {
		return nil, nil, ErrNoDevice
	}
	return &wgpuDevice{device: d}, &wgpuQueue{queue: d.GetQueue()}, nil
}

func (a *wgpuAdapter) Name() string {
	if a.fallback {
		return "wgpu (fallback)"
	}
	return "wgpu"
}

func (a *wgpuAdapter) Release() {
	a.adapter.Release()
}

func (d *wgpuDevice) CreateShaderModule(label, wgsl string) (ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: wgsl,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{module: m}, nil
}

func (d *wgpuDevice) CreatePipeline(desc PipelineDescriptor) (RenderPipeline, error) {
	module, ok := desc.Module.(*wgpuShaderModule)
	if !ok {
		return nil, fmt.Errorf("wgpu: shader module of type %T was not created by this backend", desc.Module)
	}

	bindGroupLayout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: desc.Label + " Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: desc.UniformMinBindingSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout: %w", err)
	}

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		bindGroupLayout.Release()
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module.module,
			EntryPoint: desc.VertexEntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module.module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormat(desc.TargetFormat),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		pipelineLayout.Release()
		bindGroupLayout.Release()
		return nil, err
	}

	return &wgpuRenderPipeline{
		pipeline:        created,
		pipelineLayout:  pipelineLayout,
		bindGroupLayout: bindGroupLayout,
	}, nil
}

func (d *wgpuDevice) CreateBuffer(label string, contents []byte, usage BufferUsage) (Buffer, error) {
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    bufferUsage(usage),
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf}, nil
}

func (d *wgpuDevice) CreateBindGroup(pipeline RenderPipeline, binding uint32, buffer Buffer) (BindGroup, error) {
	p, ok := pipeline.(*wgpuRenderPipeline)
	if !ok {
		return nil, fmt.Errorf("wgpu: pipeline of type %T was not created by this backend", pipeline)
	}
	b, ok := buffer.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("wgpu: buffer of type %T was not created by this backend", buffer)
	}
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: binding,
				Buffer:  b.buffer,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group: group}, nil
}

func (d *wgpuDevice) CreateCommandEncoder() (CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder: enc}, nil
}

func (d *wgpuDevice) Release() {
	d.device.Release()
}

func (q *wgpuQueue) WriteBuffer(buffer Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("wgpu: buffer of type %T was not created by this backend", buffer)
	}
	q.queue.WriteBuffer(b.buffer, offset, data)
	return nil
}

func (q *wgpuQueue) Submit(commands ...CommandBuffer) {
	buffers := make([]*wgpu.CommandBuffer, 0, len(commands))
	for _, c := range commands {
		if cb, ok := c.(*wgpuCommandBuffer); ok {
			buffers = append(buffers, cb.buffer)
		}
	}
	q.queue.Submit(buffers...)
}

func (q *wgpuQueue) Release() {
	q.queue.Release()
}

func (s *wgpuSurface) PreferredFormat(adapter Adapter) common.TextureFormat {
	caps := s.surface.GetCapabilities(adapter.(*wgpuAdapter).adapter)
	if len(caps.Formats) == 0 {
		return common.TextureFormat(wgpu.TextureFormatUndefined)
	}
	return common.TextureFormat(caps.Formats[0])
}

func (s *wgpuSurface) DefaultConfig(adapter Adapter, width, height uint32) (common.SurfaceConfiguration, error) {
	caps := s.surface.GetCapabilities(adapter.(*wgpuAdapter).adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return common.SurfaceConfiguration{}, fmt.Errorf("%w: surface is not supported by the adapter", ErrNoAdapter)
	}
	s.alphaMode = caps.AlphaModes[0]
	return common.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		PresentMode: common.PresentModeVSync,
		Format:      common.TextureFormat(caps.Formats[0]),
	}, nil
}

func (s *wgpuSurface) Configure(adapter Adapter, device Device, config common.SurfaceConfiguration) error {
	if config.Width == 0 || config.Height == 0 {
		return fmt.Errorf("%w: cannot configure a %dx%d surface", ErrSurfaceUnconfigured, config.Width, config.Height)
	}
	presentMode := wgpu.PresentModeFifo
	if config.PresentMode == common.PresentModeImmediate {
		presentMode = wgpu.PresentModeImmediate
	}
	s.surface.Configure(adapter.(*wgpuAdapter).adapter, device.(*wgpuDevice).device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      wgpu.TextureFormat(config.Format),
		Width:       config.Width,
		Height:      config.Height,
		PresentMode: presentMode,
		AlphaMode:   s.alphaMode,
	})
	return nil
}

// CurrentTexture acquires the next swap chain texture.
//
// The binding drops the acquisition status: an outdated, lost or timed-out surface comes back
// as a texture with a null handle and no error. Such a texture is reported as
// ErrSurfaceOutdated so that the caller reconfigures and retries once instead of creating a
// view of nothing; a surface that is really lost fails the retry the same way and reaches the
// caller as an error.
func (s *wgpuSurface) CurrentTexture() (Texture, error) {
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, classifySurfaceError(err)
	}
	if nullTexture(tex) {
		return nil, fmt.Errorf("%w: surface returned no texture", ErrSurfaceOutdated)
	}
	return &wgpuTexture{surface: s.surface, texture: tex}, nil
}

func (s *wgpuSurface) Release() {
	s.surface.Release()
}

func (t *wgpuTexture) CreateView() (TextureView, error) {
	v, err := t.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{view: v}, nil
}

func (t *wgpuTexture) Present() {
	t.surface.Present()
}

func (t *wgpuTexture) Release() {
	t.texture.Release()
}

func (v *wgpuTextureView) Release()  { v.view.Release() }
func (m *wgpuShaderModule) Release() { m.module.Release() }
func (b *wgpuBuffer) Release()       { b.buffer.Release() }
func (g *wgpuBindGroup) Release()    { g.group.Release() }
func (c *wgpuCommandBuffer) Release() {
	c.buffer.Release()
}

func (p *wgpuRenderPipeline) Release() {
	p.pipeline.Release()
	p.pipelineLayout.Release()
	p.bindGroupLayout.Release()
}

func (e *wgpuCommandEncoder) BeginRenderPass(view TextureView, clear common.Color) RenderPass {
	pass := e.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view.(*wgpuTextureView).view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: clear.R, G: clear.G, B: clear.B, A: clear.A,
				},
			},
		},
	})
	return &wgpuRenderPass{pass: pass}
}

func (e *wgpuCommandEncoder) Finish() (CommandBuffer, error) {
	cb, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{buffer: cb}, nil
}

func (e *wgpuCommandEncoder) Release() {
	e.encoder.Release()
}

func (p *wgpuRenderPass) SetPipeline(pipeline RenderPipeline) {
	p.pass.SetPipeline(pipeline.(*wgpuRenderPipeline).pipeline)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group BindGroup) {
	p.pass.SetBindGroup(index, group.(*wgpuBindGroup).group, nil)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) End() error {
	p.pass.End()
	return nil
}

func (p *wgpuRenderPass) Release() {
	p.pass.Release()
}

// surfaceDescriptor turns an inert SurfaceTarget into a wgpu surface descriptor. Host-issued
// ids go through the registered resolver; a CAMetalLayer pointer is mapped directly.
func surfaceDescriptor(target SurfaceTarget) (*wgpu.SurfaceDescriptor, error) {
	if desc, ok, err := ResolveSurfaceTarget(target); ok {
		if err != nil {
			return nil, err
		}
		d, isDesc := desc.(*wgpu.SurfaceDescriptor)
		if !isDesc || d == nil {
			return nil, fmt.Errorf("%w: resolver for %s returned %T", ErrUnsupportedTarget, target.Window.Kind, desc)
		}
		return d, nil
	}

	switch target.Window.Kind {
	case HandleKindMetalLayer:
		return &wgpu.SurfaceDescriptor{
			MetalLayer: &wgpu.SurfaceDescriptorFromMetalLayer{
				Layer: handlePointer(target.Window.Value),
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target)
	}
}

// handlePointer converts a foreign handle value back into a pointer for the C API.
// The value never referred to Go memory.
func handlePointer(v uintptr) unsafe.Pointer {
	return unsafe.Pointer(v) //nolint:govet
}

// nullTexture reports whether tex carries no native handle. wgpu.Texture keeps its handle
// unexported, so the field is inspected through reflection.
func nullTexture(tex *wgpu.Texture) bool {
	if tex == nil {
		return true
	}
	ref := reflect.ValueOf(tex).Elem().FieldByName("ref")
	return ref.IsValid() && ref.Kind() == reflect.Pointer && ref.IsNil()
}

// classifySurfaceError maps the validation error raised around a texture acquisition onto the
// package sentinels. Only the error scope's message text is available, so it is inspected.
func classifySurfaceError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "outdated"):
		return fmt.Errorf("%w: %v", ErrSurfaceOutdated, err)
	case strings.Contains(msg, "lost"):
		return fmt.Errorf("%w: %v", ErrSurfaceLost, err)
	case strings.Contains(msg, "configure"):
		return fmt.Errorf("%w: %v", ErrSurfaceUnconfigured, err)
	default:
		return fmt.Errorf("failed to acquire next swap chain texture: %w", err)
	}
}

func bufferUsage(u BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}
