// Package backendtest provides a recording in-memory backend.Backend for tests.
//
// Every call is appended to a shared event log, the surface configuration in effect at
// each CurrentTexture call is captured, and failures can be injected per step.
package backendtest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
)

// DefaultFormat is the texture format reported as preferred by the fake surface.
const DefaultFormat common.TextureFormat = 0x17

// Backend is a recording fake. The exported error fields make the matching step fail.
// It is safe for concurrent use.
type Backend struct {
	InstanceErr error
	SurfaceErr  error
	AdapterErr  error
	DeviceErr   error
	ShaderErr   error
	PipelineErr error

	mu           sync.Mutex
	events       []string
	acquireErrs  []error
	configured   bool
	config       common.SurfaceConfiguration
	acquired     []common.SurfaceConfiguration
	uniform      []byte
	draws        int
	presents     int
	live         map[string]int
	lastClear    common.Color
	lastTarget   backend.SurfaceTarget
	lastShader   string
	lastFallback bool
	lastPipe     backend.PipelineDescriptor
}

var _ backend.Backend = &Backend{}

// New creates an empty recording backend.
//
// Returns:
//   - *Backend: the fake
func New() *Backend {
	return &Backend{live: make(map[string]int)}
}

// QueueAcquireError makes the next CurrentTexture call fail with err. Queued errors are
// consumed in order, one per call.
func (b *Backend) QueueAcquireError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acquireErrs = append(b.acquireErrs, err)
}

// Events returns a copy of the event log.
func (b *Backend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

// Index returns the position of the first event equal to ev, or -1.
func (b *Backend) Index(ev string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.events {
		if e == ev {
			return i
		}
	}
	return -1
}

// Count returns how many logged events equal ev.
func (b *Backend) Count(ev string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == ev {
			n++
		}
	}
	return n
}

// Configuration returns the configuration last applied to the surface.
func (b *Backend) Configuration() common.SurfaceConfiguration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// Acquired returns the surface configuration in effect at each successful CurrentTexture call.
func (b *Backend) Acquired() []common.SurfaceConfiguration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]common.SurfaceConfiguration(nil), b.acquired...)
}

// Uniform returns the uniform buffer contents decoded as a little-endian float32.
func (b *Backend) Uniform() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.uniform) < 4 {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b.uniform))
}

// Draws returns the number of Draw calls recorded.
func (b *Backend) Draws() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draws
}

// Presents returns the number of presented textures.
func (b *Backend) Presents() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

// Live returns the number of created but unreleased handles of each kind.
func (b *Backend) Live() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.live))
	for k, v := range b.live {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// ClearColor returns the clear color of the last render pass.
func (b *Backend) ClearColor() common.Color {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastClear
}

// Target returns the target of the last CreateSurface call.
func (b *Backend) Target() backend.SurfaceTarget {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTarget
}

// Shader returns the WGSL source of the last compiled shader module.
func (b *Backend) Shader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastShader
}

// ForcedFallback reports whether the last adapter request asked for a fallback adapter.
func (b *Backend) ForcedFallback() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFallback
}

// Pipeline returns the descriptor of the last created pipeline.
func (b *Backend) Pipeline() backend.PipelineDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPipe
}

func (b *Backend) record(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, fmt.Sprintf(format, args...))
}

func (b *Backend) created(kind string) {
	b.mu.Lock()
	b.live[kind]++
	b.events = append(b.events, "Create "+kind)
	b.mu.Unlock()
}

func (b *Backend) released(kind string) {
	b.mu.Lock()
	b.live[kind]--
	b.events = append(b.events, "Release "+kind)
	b.mu.Unlock()
}

// handle is the common Release implementation of every fake GPU object.
type handle struct {
	b    *Backend
	kind string
}

func (h *handle) Release() { h.b.released(h.kind) }

func (b *Backend) newHandle(kind string) handle {
	b.created(kind)
	return handle{b: b, kind: kind}
}

type instance struct{ handle }
type surface struct{ handle }
type adapter struct{ handle }
type device struct{ handle }
type queue struct{ handle }
type shaderModule struct{ handle }
type pipeline struct{ handle }
type buffer struct{ handle }
type bindGroup struct{ handle }
type texture struct{ handle }
type textureView struct{ handle }
type commandEncoder struct{ handle }
type renderPass struct{ handle }
type commandBuffer struct{ handle }

func (b *Backend) CreateInstance() (backend.Instance, error) {
	if b.InstanceErr != nil {
		return nil, b.InstanceErr
	}
	return &instance{b.newHandle("Instance")}, nil
}

func (i *instance) CreateSurface(target backend.SurfaceTarget) (backend.Surface, error) {
	if i.b.SurfaceErr != nil {
		return nil, i.b.SurfaceErr
	}
	if target.IsZero() {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnsupportedTarget, target)
	}
	i.b.mu.Lock()
	i.b.lastTarget = target
	i.b.mu.Unlock()
	return &surface{i.b.newHandle("Surface")}, nil
}

func (i *instance) RequestAdapter(compatible backend.Surface, forceFallback bool) (backend.Adapter, error) {
	if i.b.AdapterErr != nil {
		return nil, i.b.AdapterErr
	}
	if compatible == nil {
		return nil, backend.ErrNoAdapter
	}
	i.b.mu.Lock()
	i.b.lastFallback = forceFallback
	i.b.mu.Unlock()
	return &adapter{i.b.newHandle("Adapter")}, nil
}

func (a *adapter) RequestDevice() (backend.Device, backend.Queue, error) {
	if a.b.DeviceErr != nil {
		return nil, nil, a.b.DeviceErr
	}
	return &device{a.b.newHandle("Device")}, &queue{a.b.newHandle("Queue")}, nil
}

func (a *adapter) Name() string { return "backendtest" }

func (d *device) CreateShaderModule(label, wgsl string) (backend.ShaderModule, error) {
	if d.b.ShaderErr != nil {
		return nil, d.b.ShaderErr
	}
	d.b.mu.Lock()
	d.b.lastShader = wgsl
	d.b.mu.Unlock()
	return &shaderModule{d.b.newHandle("ShaderModule")}, nil
}

func (d *device) CreatePipeline(desc backend.PipelineDescriptor) (backend.RenderPipeline, error) {
	if d.b.PipelineErr != nil {
		return nil, d.b.PipelineErr
	}
	if _, ok := desc.Module.(*shaderModule); !ok {
		return nil, errors.New("backendtest: foreign shader module")
	}
	d.b.mu.Lock()
	d.b.lastPipe = desc
	d.b.mu.Unlock()
	return &pipeline{d.b.newHandle("RenderPipeline")}, nil
}

func (d *device) CreateBuffer(label string, contents []byte, usage backend.BufferUsage) (backend.Buffer, error) {
	d.b.mu.Lock()
	d.b.uniform = append([]byte(nil), contents...)
	d.b.mu.Unlock()
	return &buffer{d.b.newHandle("Buffer")}, nil
}

func (d *device) CreateBindGroup(p backend.RenderPipeline, binding uint32, buf backend.Buffer) (backend.BindGroup, error) {
	return &bindGroup{d.b.newHandle("BindGroup")}, nil
}

func (d *device) CreateCommandEncoder() (backend.CommandEncoder, error) {
	return &commandEncoder{d.b.newHandle("CommandEncoder")}, nil
}

func (q *queue) WriteBuffer(buf backend.Buffer, offset uint64, data []byte) error {
	q.b.mu.Lock()
	defer q.b.mu.Unlock()
	end := int(offset) + len(data)
	if len(q.b.uniform) < end {
		grown := make([]byte, end)
		copy(grown, q.b.uniform)
		q.b.uniform = grown
	}
	copy(q.b.uniform[offset:], data)
	q.b.events = append(q.b.events, "WriteBuffer")
	return nil
}

func (q *queue) Submit(commands ...backend.CommandBuffer) {
	q.b.record("Submit %d", len(commands))
}

func (s *surface) PreferredFormat(backend.Adapter) common.TextureFormat {
	return DefaultFormat
}

func (s *surface) DefaultConfig(_ backend.Adapter, width, height uint32) (common.SurfaceConfiguration, error) {
	return common.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		PresentMode: common.PresentModeVSync,
		Format:      DefaultFormat,
	}, nil
}

func (s *surface) Configure(_ backend.Adapter, _ backend.Device, config common.SurfaceConfiguration) error {
	if config.Width == 0 || config.Height == 0 {
		return fmt.Errorf("%w: cannot configure a %dx%d surface", backend.ErrSurfaceUnconfigured, config.Width, config.Height)
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.configured = true
	s.b.config = config
	s.b.events = append(s.b.events, fmt.Sprintf("Configure %dx%d %s", config.Width, config.Height, config.PresentMode))
	return nil
}

func (s *surface) CurrentTexture() (backend.Texture, error) {
	s.b.mu.Lock()
	if !s.b.configured {
		s.b.mu.Unlock()
		return nil, backend.ErrSurfaceUnconfigured
	}
	if len(s.b.acquireErrs) > 0 {
		err := s.b.acquireErrs[0]
		s.b.acquireErrs = s.b.acquireErrs[1:]
		s.b.events = append(s.b.events, "CurrentTexture failed")
		s.b.mu.Unlock()
		return nil, err
	}
	s.b.acquired = append(s.b.acquired, s.b.config)
	s.b.events = append(s.b.events, fmt.Sprintf("CurrentTexture %dx%d", s.b.config.Width, s.b.config.Height))
	s.b.mu.Unlock()
	return &texture{s.b.newHandle("Texture")}, nil
}

func (t *texture) CreateView() (backend.TextureView, error) {
	return &textureView{t.b.newHandle("TextureView")}, nil
}

func (t *texture) Present() {
	t.b.mu.Lock()
	t.b.presents++
	t.b.events = append(t.b.events, "Present")
	t.b.mu.Unlock()
}

func (e *commandEncoder) BeginRenderPass(view backend.TextureView, clear common.Color) backend.RenderPass {
	e.b.mu.Lock()
	e.b.lastClear = clear
	e.b.mu.Unlock()
	return &renderPass{e.b.newHandle("RenderPass")}
}

func (e *commandEncoder) Finish() (backend.CommandBuffer, error) {
	return &commandBuffer{e.b.newHandle("CommandBuffer")}, nil
}

func (p *renderPass) SetPipeline(backend.RenderPipeline) { p.b.record("SetPipeline") }

func (p *renderPass) SetBindGroup(index uint32, _ backend.BindGroup) {
	p.b.record("SetBindGroup %d", index)
}

func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.b.mu.Lock()
	p.b.draws++
	p.b.events = append(p.b.events, fmt.Sprintf("Draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance))
	p.b.mu.Unlock()
}

func (p *renderPass) End() error {
	p.b.record("End")
	return nil
}
