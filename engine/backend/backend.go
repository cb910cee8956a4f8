package backend

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-view/common"
)

var (
	// ErrNoAdapter is returned when no GPU adapter compatible with the surface exists.
	ErrNoAdapter = errors.New("no compatible GPU adapter")

	// ErrNoDevice is returned when the adapter cannot provide a logical device and queue.
	ErrNoDevice = errors.New("no GPU device available")

	// ErrSurfaceOutdated is returned when the drawable surface no longer matches its native view
	// and must be reconfigured before a texture can be acquired.
	ErrSurfaceOutdated = errors.New("surface outdated")

	// ErrSurfaceLost is returned when the drawable surface is gone for good.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrSurfaceUnconfigured is returned when a texture is requested from a surface that has
	// never been configured, or was configured at a zero size.
	ErrSurfaceUnconfigured = errors.New("surface not configured")

	// ErrUnsupportedTarget is returned when a SurfaceTarget cannot be turned into a drawable surface.
	ErrUnsupportedTarget = errors.New("unsupported surface target")
)

// BufferUsage is a bit set describing how a GPU buffer will be used.
type BufferUsage uint32

const (
	// BufferUsageUniform marks a buffer bindable as a uniform.
	BufferUsageUniform BufferUsage = 1 << iota
	// BufferUsageCopyDst marks a buffer writable through Queue.WriteBuffer.
	BufferUsageCopyDst
)

// PipelineDescriptor describes the single render pipeline built by a RenderSurface.
type PipelineDescriptor struct {
	// Label is a debug label for the pipeline and its layouts.
	Label string
	// Module is the compiled shader holding both entry points.
	Module ShaderModule
	// VertexEntryPoint is the vertex stage entry point name.
	VertexEntryPoint string
	// FragmentEntryPoint is the fragment stage entry point name.
	FragmentEntryPoint string
	// TargetFormat is the color target format, normally the surface's preferred format.
	TargetFormat common.TextureFormat
	// UniformMinBindingSize is the minimum size in bytes of the group 0 binding 0 uniform,
	// visible to the vertex stage.
	UniformMinBindingSize uint64
}

// Backend is the entry point into a GPU abstraction layer.
type Backend interface {
	// CreateInstance creates a new GPU instance owned by the caller.
	//
	// Returns:
	//   - Instance: the new instance
	//   - error: an error if the instance could not be created
	CreateInstance() (Instance, error)
}

// Instance owns surfaces and enumerates adapters.
type Instance interface {
	// CreateSurface binds a drawable surface to the native view identified by target.
	//
	// Parameters:
	//   - target: the inert window/display handle pair of the native drawable
	//
	// Returns:
	//   - Surface: the drawable surface
	//   - error: ErrUnsupportedTarget, or a backend error
	CreateSurface(target SurfaceTarget) (Surface, error)

	// RequestAdapter selects an adapter able to present to the compatible surface.
	//
	// Parameters:
	//   - compatible: the surface the adapter must be able to render to
	//   - forceFallback: request a software fallback adapter instead of hardware
	//
	// Returns:
	//   - Adapter: the selected adapter
	//   - error: ErrNoAdapter if none is compatible
	RequestAdapter(compatible Surface, forceFallback bool) (Adapter, error)

	Release()
}

// Adapter is a physical GPU selection.
type Adapter interface {
	// RequestDevice opens a logical device and its queue on this adapter.
	//
	// Returns:
	//   - Device: the logical device
	//   - Queue: the device's queue
	//   - error: ErrNoDevice if the device could not be created
	RequestDevice() (Device, Queue, error)

	// Name returns a human-readable adapter description for logging.
	Name() string

	Release()
}

// Device creates GPU resources.
type Device interface {
	// CreateShaderModule compiles WGSL source into a shader module.
	CreateShaderModule(label, wgsl string) (ShaderModule, error)

	// CreatePipeline builds a render pipeline with one uniform binding at group 0 binding 0.
	CreatePipeline(desc PipelineDescriptor) (RenderPipeline, error)

	// CreateBuffer creates a buffer initialized with contents.
	CreateBuffer(label string, contents []byte, usage BufferUsage) (Buffer, error)

	// CreateBindGroup binds buffer at the given binding of the pipeline's group 0 layout.
	CreateBindGroup(pipeline RenderPipeline, binding uint32, buffer Buffer) (BindGroup, error)

	// CreateCommandEncoder starts recording a command buffer.
	CreateCommandEncoder() (CommandEncoder, error)

	Release()
}

// Queue submits work to a device.
type Queue interface {
	// WriteBuffer schedules a write of data into buffer at offset.
	WriteBuffer(buffer Buffer, offset uint64, data []byte) error

	// Submit executes the recorded command buffers in order.
	Submit(commands ...CommandBuffer)

	Release()
}

// Surface is a drawable bound to exactly one native view.
type Surface interface {
	// PreferredFormat returns the texture format the surface prefers on the given adapter.
	PreferredFormat(adapter Adapter) common.TextureFormat

	// DefaultConfig returns the adapter's default configuration for a surface of the given size.
	DefaultConfig(adapter Adapter, width, height uint32) (common.SurfaceConfiguration, error)

	// Configure (re)configures the surface for presentation.
	Configure(adapter Adapter, device Device, config common.SurfaceConfiguration) error

	// CurrentTexture acquires the next presentable texture. May block on the platform's
	// presentation queue.
	//
	// Returns:
	//   - Texture: the acquired texture
	//   - error: ErrSurfaceUnconfigured, ErrSurfaceOutdated, ErrSurfaceLost, or a backend error
	CurrentTexture() (Texture, error)

	Release()
}

// Texture is an acquired presentable texture.
type Texture interface {
	// CreateView creates the default view of the texture for use as a render attachment.
	CreateView() (TextureView, error)

	// Present hands the texture back to the surface for display.
	Present()

	Release()
}

// TextureView is a render attachment view of a texture.
type TextureView interface {
	Release()
}

// ShaderModule is a compiled shader.
type ShaderModule interface {
	Release()
}

// RenderPipeline is a compiled render pipeline.
type RenderPipeline interface {
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	Release()
}

// BindGroup is a set of resources bound to a pipeline layout group.
type BindGroup interface {
	Release()
}

// CommandEncoder records GPU commands.
type CommandEncoder interface {
	// BeginRenderPass starts a render pass drawing into view after clearing it to clear.
	BeginRenderPass(view TextureView, clear common.Color) RenderPass

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBuffer, error)

	Release()
}

// RenderPass records draw commands into a single color attachment.
type RenderPass interface {
	SetPipeline(pipeline RenderPipeline)
	SetBindGroup(index uint32, group BindGroup)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
	Release()
}

// CommandBuffer is a finished, submittable command recording.
type CommandBuffer interface {
	Release()
}
