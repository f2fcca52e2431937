package backend

import (
	"fmt"

	"github.com/Carmen-Shannon/lumen/common"
)

// BackendType selects the RendererBackend implementation.
type BackendType int

const (
	// BackendTypeWGPU renders through WebGPU to a window surface.
	BackendTypeWGPU BackendType = iota
	// BackendTypeHeadless records commands without touching a GPU.
	BackendTypeHeadless
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHeadless:
		return "headless"
	}
	return fmt.Sprintf("BackendType(%d)", int(t))
}

// PresentMode controls how frames are delivered to the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical sync on present.
	PresentModeVSync PresentMode = iota
	// PresentModeUncapped presents immediately and may tear.
	PresentModeUncapped
)

// MSAASampleCount is the number of samples per pixel for the scene attachments.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
)

// TextureFormat enumerates the texel formats used by the renderer.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatBGRA8Unorm
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatRGBA16Float
	TextureFormatDepth24PlusStencil8
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	case TextureFormatDepth24PlusStencil8:
		return "depth24plus-stencil8"
	}
	return "undefined"
}

// BytesPerPixel returns the texel size for uploadable formats, 0 otherwise.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatBGRA8Unorm, TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSrgb:
		return 4
	case TextureFormatRGBA16Float:
		return 8
	}
	return 0
}

// TextureUsage is a bit set of the ways a texture may be bound.
type TextureUsage uint32

const (
	TextureUsageCopyDst TextureUsage = 1 << iota
	TextureUsageTextureBinding
	TextureUsageRenderAttachment
)

// TextureDescriptor describes a 2D texture allocation.
type TextureDescriptor struct {
	Label       string
	Width       uint32
	Height      uint32
	SampleCount uint32
	Format      TextureFormat
	Usage       TextureUsage
}

// BufferUsage is a bit set of the ways a buffer may be bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
)

// BufferDescriptor describes a GPU buffer allocation. Buffers are always writable from the CPU queue.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// AddressMode controls texture coordinate wrapping.
type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeClampToEdge
)

// FilterMode controls texel filtering.
type FilterMode int

const (
	FilterModeLinear FilterMode = iota
	FilterModeNearest
)

// SamplerDescriptor describes a sampler. Zero values are linear filtering with repeat addressing.
type SamplerDescriptor struct {
	Label       string
	AddressMode AddressMode
	Filter      FilterMode
}

// VertexFormat enumerates vertex attribute formats.
type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	}
	return 0
}

// VertexAttribute describes one attribute inside an interleaved vertex.
type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

// VertexLayout describes one interleaved vertex buffer.
type VertexLayout struct {
	ArrayStride uint64
	Attributes  []VertexAttribute
}

// ShaderStage is a bit set of programmable stages.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

// BindingType enumerates bind group entry kinds.
type BindingType int

const (
	BindingTypeUniform BindingType = iota
	BindingTypeTexture
	BindingTypeSampler
)

// BindingLayout describes one entry of a bind group layout.
type BindingLayout struct {
	Binding    uint32
	Type       BindingType
	Visibility ShaderStage
	// MinSize is the minimum uniform block size in bytes, ignored for textures and samplers.
	MinSize uint64
}

// PipelineLayoutDescriptor lists the bind group layouts of a program, indexed by group.
type PipelineLayoutDescriptor struct {
	Label      string
	BindGroups [][]BindingLayout
}

// Topology is the primitive assembly mode.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
)

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeBack
	CullModeFront
)

// FrontFace selects the winding of front-facing triangles.
type FrontFace int

const (
	FrontFaceCW FrontFace = iota
	FrontFaceCCW
)

// BlendMode selects a colour blend preset.
type BlendMode int

const (
	// BlendNone writes colour unchanged.
	BlendNone BlendMode = iota
	// BlendAlpha blends colour by source alpha and keeps source alpha.
	BlendAlpha
)

// DepthStencilState configures depth testing for a pipeline.
type DepthStencilState struct {
	Format       TextureFormat
	TestEnabled  bool
	WriteEnabled bool
}

// PipelineDescriptor is everything needed to build one render pipeline.
type PipelineDescriptor struct {
	Label         string
	Layout        PipelineLayout
	Source        string
	VertexEntry   string
	FragmentEntry string
	VertexLayouts []VertexLayout
	ColorFormat   TextureFormat
	SampleCount   uint32
	Topology      Topology
	CullMode      CullMode
	FrontFace     FrontFace
	Blend         BlendMode
	// DepthStencil is nil for pipelines used in passes without a depth attachment.
	DepthStencil *DepthStencilState
}

// BindGroupEntry binds exactly one of Buffer, TextureView or Sampler.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	TextureView TextureView
	Sampler     Sampler
}

// BindGroupDescriptor creates a bind group against group Group of Layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  PipelineLayout
	Group   uint32
	Entries []BindGroupEntry
}

// LoadOp selects what happens to an attachment at the start of a pass.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// ColorAttachment is the colour destination of a pass.
type ColorAttachment struct {
	View          TextureView
	ResolveTarget TextureView
	LoadOp        LoadOp
	ClearColor    common.Color
}

// DepthAttachment is the depth-stencil destination of a pass.
type DepthAttachment struct {
	View         TextureView
	LoadOp       LoadOp
	ClearDepth   float32
	ClearStencil uint32
}

// PassDescriptor describes a render pass.
type PassDescriptor struct {
	Label string
	Color ColorAttachment
	Depth *DepthAttachment
}

// AdapterInfo is read-only adapter metadata.
type AdapterInfo struct {
	Name    string
	Vendor  string
	Backend string
	// DedicatedMemoryMB is 0 when the API does not report it.
	DedicatedMemoryMB uint64
}
