package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/backend"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

//go:embed shader.wgsl
var triangleShader string

// uniformSize is the size of the single f32 logical-width uniform at group 0 binding 0.
const uniformSize = 4

var (
	// ErrShaderCompile is returned when the triangle shader fails to compile or does not declare
	// both render entry points and the logical-width uniform.
	ErrShaderCompile = errors.New("shader compilation failed")

	// ErrPipeline is returned when the render pipeline or its bindings cannot be created.
	ErrPipeline = errors.New("render pipeline creation failed")
)

// renderSurface is the implementation of the RenderSurface interface.
type renderSurface struct {
	affinity common.ThreadAffinity

	label         string
	presentMode   common.PresentMode
	clearColor    common.Color
	forceFallback bool
	frameCounter  profiler.FrameCounter
	shaderSource  string

	instance  backend.Instance
	surface   backend.Surface
	adapter   backend.Adapter
	device    backend.Device
	queue     backend.Queue
	shader    backend.ShaderModule
	pipeline  backend.RenderPipeline
	uniform   backend.Buffer
	bindGroup backend.BindGroup

	config       common.SurfaceConfiguration
	uniformValue float32
	released     bool
}

// RenderSurface owns one GPU binding to a native drawable plus the single pipeline drawing a
// colored triangle into it.
//
// A RenderSurface is bound to the goroutine that created it. Every method must be called from
// that goroutine (the UI thread); calls from anywhere else panic.
type RenderSurface interface {
	// Resize writes the new logical width into the uniform buffer and reconfigures the drawable
	// at the given pixel size. Calling it repeatedly with the same arguments is harmless.
	// It must be called before the next Redraw whenever the view's pixel size changed.
	//
	// Parameters:
	//   - width: the new width in backing-store pixels
	//   - height: the new height in backing-store pixels
	//   - scale: the backing scale factor
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	Resize(width, height uint32, scale float64) error

	// Redraw acquires the next drawable texture, clears it, draws the triangle, submits and
	// presents. The caller must not call Redraw while the configured size is zero.
	// An outdated surface is reconfigured and acquisition retried once.
	//
	// Returns:
	//   - error: an error if any step of the frame failed
	Redraw() error

	// Configuration returns the surface configuration set by the last Resize.
	//
	// Returns:
	//   - common.SurfaceConfiguration: the current configuration
	Configuration() common.SurfaceConfiguration

	// UniformValue returns the logical width last written to the uniform buffer.
	//
	// Returns:
	//   - float32: the uniform value
	UniformValue() float32

	// Release frees every GPU resource in reverse dependency order and closes the frame counter.
	// Calling Release more than once is safe.
	Release()
}

var _ RenderSurface = &renderSurface{}

// NewRenderSurface binds a drawable to target and builds the triangle pipeline. Every GPU
// negotiation step runs synchronously; a failure releases what was already created and is
// returned wrapped with the name of the failed step.
//
// Parameters:
//   - b: the graphics backend
//   - target: the inert handle pair of the native drawable
//   - width: the initial width in backing-store pixels
//   - height: the initial height in backing-store pixels
//   - scale: the backing scale factor
//   - options: variadic list of RenderSurfaceBuilderOption functions
//
// Returns:
//   - RenderSurface: the configured surface
//   - error: an error wrapping backend.ErrNoAdapter, backend.ErrNoDevice, ErrShaderCompile,
//     ErrPipeline or the backend's own error
func NewRenderSurface(b backend.Backend, target backend.SurfaceTarget, width, height uint32, scale float64, options ...RenderSurfaceBuilderOption) (RenderSurface, error) {
	s := &renderSurface{
		affinity:     common.NewThreadAffinity("RenderSurface"),
		label:        "Triangle",
		presentMode:  common.PresentModeVSync,
		clearColor:   common.ColorGreen,
		shaderSource: triangleShader,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.frameCounter == nil {
		s.frameCounter = profiler.NewFrameCounter()
	}

	if err := s.init(b, target, width, height, scale); err != nil {
		s.Release()
		return nil, err
	}

	common.Logger().Info("render surface created",
		slog.String("label", s.label),
		slog.String("adapter", s.adapter.Name()),
		slog.String("size", s.config.Size().String()),
		slog.String("presentMode", s.presentMode.String()),
	)
	return s, nil
}

func (s *renderSurface) init(b backend.Backend, target backend.SurfaceTarget, width, height uint32, scale float64) error {
	refl, err := reflectShader(s.shaderSource)
	if err != nil {
		return fmt.Errorf("failed to reflect shader: %w", wrapSentinel(err, ErrShaderCompile))
	}

	if s.instance, err = b.CreateInstance(); err != nil {
		return fmt.Errorf("failed to create GPU instance: %w", err)
	}
	if s.surface, err = s.instance.CreateSurface(target); err != nil {
		return fmt.Errorf("failed to create surface for %s: %w", target, err)
	}
	if s.adapter, err = s.instance.RequestAdapter(s.surface, s.forceFallback); err != nil {
		return fmt.Errorf("failed to find an appropriate adapter: %w", wrapSentinel(err, backend.ErrNoAdapter))
	}
	if s.device, s.queue, err = s.adapter.RequestDevice(); err != nil {
		return fmt.Errorf("failed to create device: %w", wrapSentinel(err, backend.ErrNoDevice))
	}
	if s.shader, err = s.device.CreateShaderModule(s.label+" Shader", s.shaderSource); err != nil {
		return fmt.Errorf("failed to compile shader: %w", wrapSentinel(err, ErrShaderCompile))
	}

	format := s.surface.PreferredFormat(s.adapter)
	if s.pipeline, err = s.device.CreatePipeline(backend.PipelineDescriptor{
		Label:                 s.label,
		Module:                s.shader,
		VertexEntryPoint:      refl.VertexEntryPoint,
		FragmentEntryPoint:    refl.FragmentEntryPoint,
		TargetFormat:          format,
		UniformMinBindingSize: uniformSize,
	}); err != nil {
		return fmt.Errorf("failed to create render pipeline: %w", wrapSentinel(err, ErrPipeline))
	}

	s.uniformValue = common.LogicalWidth(width, scale)
	if s.uniform, err = s.device.CreateBuffer("Uniform Buffer", common.Float32Bytes(s.uniformValue), backend.BufferUsageUniform|backend.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("failed to create uniform buffer: %w", wrapSentinel(err, ErrPipeline))
	}
	if s.bindGroup, err = s.device.CreateBindGroup(s.pipeline, 0, s.uniform); err != nil {
		return fmt.Errorf("failed to create bind group: %w", wrapSentinel(err, ErrPipeline))
	}

	if s.config, err = s.surface.DefaultConfig(s.adapter, width, height); err != nil {
		return fmt.Errorf("failed to get default surface configuration: %w", err)
	}
	s.config.PresentMode = s.presentMode
	if err = s.surface.Configure(s.adapter, s.device, s.config); err != nil {
		return fmt.Errorf("failed to configure surface: %w", err)
	}
	return nil
}

func (s *renderSurface) Resize(width, height uint32, scale float64) error {
	s.affinity.Check("Resize")
	s.checkLive("Resize")

	s.uniformValue = common.LogicalWidth(width, scale)
	if err := s.queue.WriteBuffer(s.uniform, 0, common.Float32Bytes(s.uniformValue)); err != nil {
		return fmt.Errorf("failed to write uniform buffer: %w", err)
	}

	s.config.Width = width
	s.config.Height = height
	if err := s.surface.Configure(s.adapter, s.device, s.config); err != nil {
		return fmt.Errorf("failed to configure surface at %s: %w", s.config.Size(), err)
	}
	return nil
}

func (s *renderSurface) Redraw() error {
	s.affinity.Check("Redraw")
	s.checkLive("Redraw")

	texture, err := s.acquire()
	if err != nil {
		return err
	}
	defer texture.Release()

	view, err := texture.CreateView()
	if err != nil {
		return fmt.Errorf("failed to create texture view: %w", err)
	}
	defer view.Release()

	encoder, err := s.device.CreateCommandEncoder()
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(view, s.clearColor)
	pass.SetPipeline(s.pipeline)
	pass.SetBindGroup(0, s.bindGroup)
	pass.Draw(3, 1, 0, 0)
	err = pass.End()
	// the pass must be released before the encoder is finished
	pass.Release()
	if err != nil {
		return fmt.Errorf("failed to end render pass: %w", err)
	}

	commands, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	defer commands.Release()

	s.queue.Submit(commands)
	texture.Present()

	s.frameCounter.RecordFrame()
	return nil
}

// acquire gets the next presentable texture. An outdated surface is reconfigured with the
// current configuration and acquisition retried exactly once.
func (s *renderSurface) acquire() (backend.Texture, error) {
	texture, err := s.surface.CurrentTexture()
	if errors.Is(err, backend.ErrSurfaceOutdated) {
		common.Logger().Warn("surface outdated, reconfiguring", slog.String("size", s.config.Size().String()))
		if cerr := s.surface.Configure(s.adapter, s.device, s.config); cerr != nil {
			return nil, fmt.Errorf("failed to reconfigure outdated surface: %w", cerr)
		}
		texture, err = s.surface.CurrentTexture()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire next swap chain texture: %w", err)
	}
	return texture, nil
}

func (s *renderSurface) Configuration() common.SurfaceConfiguration {
	s.affinity.Check("Configuration")
	return s.config
}

func (s *renderSurface) UniformValue() float32 {
	s.affinity.Check("UniformValue")
	return s.uniformValue
}

func (s *renderSurface) Release() {
	s.affinity.Check("Release")
	if s.released {
		return
	}
	s.released = true

	// pipeline and its resources
	releaseAll(s.bindGroup, s.pipeline, s.shader, s.uniform)
	releaseAll(s.queue, s.device)
	releaseAll(s.surface)
	releaseAll(s.adapter)
	releaseAll(s.instance)
	s.bindGroup, s.pipeline, s.shader, s.uniform = nil, nil, nil, nil
	s.queue, s.device, s.surface, s.adapter, s.instance = nil, nil, nil, nil, nil

	if s.frameCounter != nil {
		s.frameCounter.Close()
	}
}

func (s *renderSurface) checkLive(op string) {
	if s.released {
		panic(fmt.Sprintf("RenderSurface.%s called after Release", op))
	}
}

type releaser interface {
	Release()
}

// releaseAll releases each non-nil handle in argument order.
func releaseAll(handles ...releaser) {
	for _, h := range handles {
		if h != nil {
			h.Release()
		}
	}
}

// reflectShader finds the entry points of source and checks that it reads the logical width
// from a 4-byte uniform at group 0 binding 0.
func reflectShader(source string) (shader.Reflection, error) {
	refl, err := shader.Reflect(source)
	if err != nil {
		return shader.Reflection{}, err
	}
	u, err := refl.Uniform(0, 0)
	if err != nil {
		return shader.Reflection{}, err
	}
	if u.MinSize != uniformSize {
		return shader.Reflection{}, fmt.Errorf("uniform %s: %s is %d bytes, want %d", u.Name, u.Type, u.MinSize, uniformSize)
	}
	return refl, nil
}

// wrapSentinel makes err match sentinel under errors.Is, unless it already does.
func wrapSentinel(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
