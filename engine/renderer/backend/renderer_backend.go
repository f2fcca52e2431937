// Package backend is the GPU abstraction every renderer component records through.
// The wgpu implementation drives a real WebGPU device; the headless implementation
// tracks resources and records calls so the frame logic can be verified without a GPU.
package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPass is returned when a pass command is issued outside BeginPass/EndPass.
	ErrNoPass = errors.New("no render pass is open")
	// ErrNoCommands is returned when a pass is begun before BeginCommands.
	ErrNoCommands = errors.New("no command encoder is open")
	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("resource has been released")
)

// StageError is returned by backend constructors and names the creation step that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Texture is a GPU texture exclusively owned by its creator.
type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
	SampleCount() uint32
	Format() TextureFormat

	// CreateView creates a full view over the texture. The view must be released
	// separately, before or after the texture.
	//
	// Parameters:
	//   - label: debug label of the view
	//
	// Returns:
	//   - TextureView: the created view
	//   - error: error if the view could not be created
	CreateView(label string) (TextureView, error)

	Release()
}

// TextureView is a view over a texture used as an attachment or a shader input.
type TextureView interface {
	Label() string
	Width() uint32
	Height() uint32
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

// Sampler is a texture sampler.
type Sampler interface {
	Release()
}

// PipelineLayout holds the bind group layouts shared by the pipeline variants of one program.
type PipelineLayout interface {
	Label() string
	Release()
}

// RenderPipeline is a compiled render pipeline with its fixed rasterizer, depth and blend state.
type RenderPipeline interface {
	Label() string
	Release()
}

// BindGroup is a set of resources bound at one group index.
type BindGroup interface {
	Release()
}

// RendererBackend is the command and resource surface of a GPU device.
// All methods are called from the render goroutine.
type RendererBackend interface {
	// Type reports which implementation this is.
	Type() BackendType

	// AdapterInfo returns the adapter metadata queried when the backend was created.
	AdapterInfo() AdapterInfo

	// SurfaceFormat returns the texel format of the swapchain backbuffers.
	SurfaceFormat() TextureFormat

	// ConfigureSurface (re)configures the swapchain buffers. Called at startup and on resize.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	//   - mode: vsync or uncapped presentation
	//
	// Returns:
	//   - error: error if the surface could not be configured
	ConfigureSurface(width, height uint32, mode PresentMode) error

	// AcquireBackbuffer returns a view of the swapchain image for the current frame.
	// The view is owned by the backend and released by Present.
	//
	// Returns:
	//   - TextureView: the backbuffer view
	//   - error: error if no swapchain image could be acquired
	AcquireBackbuffer() (TextureView, error)

	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads tightly packed texel rows into the whole of tex.
	WriteTexture(tex Texture, pixels []byte, bytesPerRow uint32) error

	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer schedules a queue write into buf at offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayout, error)

	CreateRenderPipeline(desc PipelineDescriptor) (RenderPipeline, error)

	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// BeginCommands opens the command encoder for the frame.
	BeginCommands() error

	// BeginPass opens a render pass. Only one pass may be open at a time.
	BeginPass(desc PassDescriptor) error

	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, bg BindGroup)
	SetVertexBuffer(buf Buffer)
	SetIndexBuffer(buf Buffer)
	Draw(vertexCount uint32)
	DrawIndexed(indexCount, firstIndex uint32)

	// EndPass closes the open render pass.
	EndPass() error

	// Submit finishes the command encoder and submits it to the queue.
	Submit() error

	// Present shows the acquired backbuffer and releases it.
	Present() error

	// DiscardBackbuffer releases the acquired backbuffer without showing it, so the next
	// frame can acquire again. It does nothing when no backbuffer is held.
	DiscardBackbuffer()

	// Release destroys the device and everything the backend still owns.
	Release()
}
