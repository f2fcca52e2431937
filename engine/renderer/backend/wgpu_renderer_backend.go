package backend

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	info          AdapterInfo
	surfaceFormat wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32

	// Frame state for the command encoder and the single open pass.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// ErrSoftwareAdapter is wrapped in the adapter StageError when only a CPU adapter is available.
var ErrSoftwareAdapter = errors.New("software adapter rejected, a hardware GPU is required")

// NewWGPURendererBackend creates a WebGPU device bound to a window surface. Only hardware
// adapters are accepted, a CPU adapter fails the adapter stage.
// Creation locks the calling goroutine to its OS thread for the surface and device setup.
// Afterwards calls may come from any goroutine, one at a time; the engine makes them from
// its render goroutine.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor of the window
//
// Returns:
//   - RendererBackend: the created backend
//   - error: a *StageError naming the creation step that failed
func NewWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor) (RendererBackend, error) {
	if surfaceDescriptor == nil {
		return nil, &StageError{Stage: "surface", Err: errors.New("missing surface descriptor")}
	}

	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}
	if w.instance == nil {
		return nil, &StageError{Stage: "instance", Err: errors.New("wgpu instance creation returned nil")}
	}

	w.surface = w.instance.CreateSurface(surfaceDescriptor)
	if w.surface == nil {
		w.Release()
		return nil, &StageError{Stage: "surface", Err: errors.New("wgpu surface creation returned nil")}
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: false,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, &StageError{Stage: "adapter", Err: err}
	}
	w.adapter = a
	if err := checkAdapter(a.GetInfo()); err != nil {
		w.Release()
		return nil, &StageError{Stage: "adapter", Err: err}
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		w.Release()
		return nil, &StageError{Stage: "device", Err: err}
	}
	w.device = d
	w.queue = d.GetQueue()

	capabilities := w.surface.GetCapabilities(w.adapter)
	if len(capabilities.Formats) == 0 {
		w.Release()
		return nil, &StageError{Stage: "swapchain", Err: errors.New("surface reports no supported formats")}
	}
	w.surfaceFormat = pickSurfaceFormat(capabilities.Formats)

	info := a.GetInfo()
	w.info = AdapterInfo{
		Name:    info.Name,
		Vendor:  info.VendorName,
		Backend: fmt.Sprint(info.BackendType),
	}

	return w, nil
}

// checkAdapter rejects adapters that are not backed by GPU hardware.
func checkAdapter(info wgpu.AdapterInfo) error {
	if info.AdapterType == wgpu.AdapterTypeCPU {
		return fmt.Errorf("%w: %q", ErrSoftwareAdapter, info.Name)
	}
	return nil
}

// pickSurfaceFormat prefers a linear 8-bit format since the composite pass writes display-ready values.
func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	return formats[0]
}

func (b *wgpuRendererBackendImpl) Type() BackendType {
	return BackendTypeWGPU
}

func (b *wgpuRendererBackendImpl) AdapterInfo() AdapterInfo {
	return b.info
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() TextureFormat {
	switch b.surfaceFormat {
	case wgpu.TextureFormatBGRA8Unorm:
		return TextureFormatBGRA8Unorm
	case wgpu.TextureFormatRGBA8Unorm:
		return TextureFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return TextureFormatRGBA8UnormSrgb
	}
	return TextureFormatUndefined
}

// toFormat maps a TextureFormat, with Undefined standing for the surface format.
func (b *wgpuRendererBackendImpl) toFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case TextureFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case TextureFormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	}
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height uint32, mode PresentMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("configure surface: invalid size %dx%d", width, height)
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	presentMode := wgpu.PresentModeFifo
	if mode == PresentModeUncapped && slices.Contains(capabilities.PresentModes, wgpu.PresentModeImmediate) {
		presentMode = wgpu.PresentModeImmediate
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceWidth = width
	b.surfaceHeight = height
	return nil
}

func (b *wgpuRendererBackendImpl) AcquireBackbuffer() (TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	b.frameSurface = surfaceTexture
	b.frameView = view

	return &wgpuView{
		view:     view,
		label:    BackbufferLabel,
		width:    b.surfaceWidth,
		height:   b.surfaceHeight,
		borrowed: true,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(desc TextureDescriptor) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var usage wgpu.TextureUsage
	if desc.Usage&TextureUsageCopyDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}
	if desc.Usage&TextureUsageTextureBinding != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if desc.Usage&TextureUsageRenderAttachment != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	samples := max(desc.SampleCount, 1)

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.toFormat(desc.Format),
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	desc.SampleCount = samples
	return &wgpuTexture{tex: tex, desc: desc}, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex Texture, pixels []byte, bytesPerRow uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := tex.(*wgpuTexture)
	if !ok || t.tex == nil {
		return fmt.Errorf("write texture: %w", ErrReleased)
	}
	if want := uint64(bytesPerRow) * uint64(t.desc.Height); uint64(len(pixels)) < want {
		return fmt.Errorf("write texture %q: have %d bytes, want %d", t.desc.Label, len(pixels), want)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: t.desc.Height,
		},
		&wgpu.Extent3D{
			Width:              t.desc.Width,
			Height:             t.desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	address := wgpu.AddressModeRepeat
	if desc.AddressMode == AddressModeClampToEdge {
		address = wgpu.AddressModeClampToEdge
	}
	filter, mipFilter := wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear
	if desc.Filter == FilterModeNearest {
		filter, mipFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  mipFilter,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %q: %w", desc.Label, err)
	}
	return &wgpuSampler{sampler: samp}, nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageCopyDst
	if desc.Usage&BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if desc.Usage&BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if desc.Usage&BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}

	// Queue writes require a 4-byte aligned size.
	size := (desc.Size + 3) &^ 3
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{buf: buf, label: desc.Label, size: size}, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb.buf == nil {
		return fmt.Errorf("write buffer: %w", ErrReleased)
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d overflow size %d", wb.label, len(data), offset, wb.size)
	}
	if rem := len(data) % 4; rem != 0 {
		data = append(slices.Clone(data), make([]byte, 4-rem)...)
	}
	b.queue.WriteBuffer(wb.buf, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups := make([]*wgpu.BindGroupLayout, 0, len(desc.BindGroups))
	release := func() {
		for _, g := range groups {
			g.Release()
		}
	}

	for g, entries := range desc.BindGroups {
		layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(entries))
		for i, e := range entries {
			layoutEntries[i] = toBindGroupLayoutEntry(e)
		}
		layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", desc.Label, g),
			Entries: layoutEntries,
		})
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		groups = append(groups, layout)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("create pipeline layout %q: %w", desc.Label, err)
	}
	return &wgpuLayout{layout: pipelineLayout, groups: groups, label: desc.Label}, nil
}

func toBindGroupLayoutEntry(e BindingLayout) wgpu.BindGroupLayoutEntry {
	var visibility wgpu.ShaderStage
	if e.Visibility&ShaderStageVertex != 0 {
		visibility |= wgpu.ShaderStageVertex
	}
	if e.Visibility&ShaderStageFragment != 0 {
		visibility |= wgpu.ShaderStageFragment
	}

	entry := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: visibility,
	}
	switch e.Type {
	case BindingTypeUniform:
		entry.Buffer = wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: e.MinSize,
		}
	case BindingTypeTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case BindingTypeSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		}
	}
	return entry
}

func (b *wgpuRendererBackendImpl) CreateRenderPipeline(desc PipelineDescriptor) (RenderPipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, ok := desc.Layout.(*wgpuLayout)
	if !ok || layout.layout == nil {
		return nil, fmt.Errorf("create pipeline %q: missing layout", desc.Label)
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %q: %w", desc.Label, err)
	}
	defer module.Release()

	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexLayouts))
	for _, vl := range desc.VertexLayouts {
		attrs := make([]wgpu.VertexAttribute, len(vl.Attributes))
		for i, a := range vl.Attributes {
			attrs[i] = wgpu.VertexAttribute{
				Format:         toVertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: vl.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}

	target := wgpu.ColorTargetState{
		Format:    b.toFormat(desc.ColorFormat),
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend == BlendAlpha {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
			},
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if ds := desc.DepthStencil; ds != nil {
		depthCompare := wgpu.CompareFunctionLess
		if !ds.TestEnabled {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            b.toFormat(ds.Format),
			DepthWriteEnabled: ds.WriteEnabled,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  toTopology(desc.Topology),
			FrontFace: toFrontFace(desc.FrontFace),
			CullMode:  toCullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}
	return &wgpuPipeline{pipeline: created, label: desc.Label}, nil
}

func toVertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	}
	return wgpu.VertexFormatFloat32x3
}

func toTopology(t Topology) wgpu.PrimitiveTopology {
	if t == TopologyTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func toFrontFace(f FrontFace) wgpu.FrontFace {
	if f == FrontFaceCCW {
		return wgpu.FrontFaceCCW
	}
	return wgpu.FrontFaceCW
}

func toCullMode(c CullMode) wgpu.CullMode {
	switch c {
	case CullModeBack:
		return wgpu.CullModeBack
	case CullModeFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, ok := desc.Layout.(*wgpuLayout)
	if !ok || int(desc.Group) >= len(layout.groups) {
		return nil, fmt.Errorf("create bind group %q: group %d not in layout", desc.Label, desc.Group)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			buf, ok := e.Buffer.(*wgpuBuffer)
			if !ok || buf.buf == nil {
				return nil, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, ErrReleased)
			}
			entry.Buffer = buf.buf
			entry.Offset = 0
			entry.Size = wgpu.WholeSize
		case e.TextureView != nil:
			view, ok := e.TextureView.(*wgpuView)
			if !ok || view.view == nil {
				return nil, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, ErrReleased)
			}
			entry.TextureView = view.view
		case e.Sampler != nil:
			samp, ok := e.Sampler.(*wgpuSampler)
			if !ok || samp.sampler == nil {
				return nil, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, ErrReleased)
			}
			entry.Sampler = samp.sampler
		default:
			return nil, fmt.Errorf("bind group %q binding %d is empty", desc.Label, e.Binding)
		}
		entries[i] = entry
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.groups[desc.Group],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %q: %w", desc.Label, err)
	}
	return &wgpuBindGroup{group: bindGroup}, nil
}

func (b *wgpuRendererBackendImpl) BeginCommands() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return errors.New("begin commands: encoder already open")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(desc PassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoCommands
	}
	if b.framePass != nil {
		return errors.New("begin pass: a pass is already open")
	}
	color, ok := desc.Color.View.(*wgpuView)
	if !ok || color.view == nil {
		return fmt.Errorf("begin pass %q: invalid colour attachment", desc.Label)
	}

	colorAttachment := wgpu.RenderPassColorAttachment{
		View:    color.view,
		LoadOp:  toLoadOp(desc.Color.LoadOp),
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: float64(desc.Color.ClearColor.R),
			G: float64(desc.Color.ClearColor.G),
			B: float64(desc.Color.ClearColor.B),
			A: float64(desc.Color.ClearColor.A),
		},
	}
	if rt, ok := desc.Color.ResolveTarget.(*wgpuView); ok && rt.view != nil {
		colorAttachment.ResolveTarget = rt.view
		colorAttachment.StoreOp = wgpu.StoreOpDiscard // Only the resolved result is kept
	}

	passDesc := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
	}
	if desc.Depth != nil {
		depth, ok := desc.Depth.View.(*wgpuView)
		if !ok || depth.view == nil {
			return fmt.Errorf("begin pass %q: invalid depth attachment", desc.Label)
		}
		passDesc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              depth.view,
			DepthLoadOp:       toLoadOp(desc.Depth.LoadOp),
			DepthStoreOp:      wgpu.StoreOpDiscard,
			DepthClearValue:   desc.Depth.ClearDepth,
			StencilLoadOp:     toLoadOp(desc.Depth.LoadOp),
			StencilStoreOp:    wgpu.StoreOpDiscard,
			StencilClearValue: desc.Depth.ClearStencil,
		}
	}

	b.framePass = b.frameEncoder.BeginRenderPass(passDesc)
	return nil
}

func toLoadOp(op LoadOp) wgpu.LoadOp {
	if op == LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func (b *wgpuRendererBackendImpl) pass(op string) *wgpu.RenderPassEncoder {
	if b.framePass == nil {
		logging.LogWarn("%s: %v", op, ErrNoPass)
	}
	return b.framePass
}

func (b *wgpuRendererBackendImpl) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p := b.pass("set viewport"); p != nil {
		p.SetViewport(x, y, width, height, minDepth, maxDepth)
	}
}

func (b *wgpuRendererBackendImpl) SetPipeline(rp RenderPipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wp, ok := rp.(*wgpuPipeline)
	if p := b.pass("set pipeline"); p != nil && ok && wp.pipeline != nil {
		p.SetPipeline(wp.pipeline)
	}
}

func (b *wgpuRendererBackendImpl) SetBindGroup(index uint32, bg BindGroup) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wg, ok := bg.(*wgpuBindGroup)
	if p := b.pass("set bind group"); p != nil && ok && wg.group != nil {
		p.SetBindGroup(index, wg.group, nil)
	}
}

func (b *wgpuRendererBackendImpl) SetVertexBuffer(buf Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := buf.(*wgpuBuffer)
	if p := b.pass("set vertex buffer"); p != nil && ok && wb.buf != nil {
		p.SetVertexBuffer(0, wb.buf, 0, wgpu.WholeSize)
	}
}

func (b *wgpuRendererBackendImpl) SetIndexBuffer(buf Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := buf.(*wgpuBuffer)
	if p := b.pass("set index buffer"); p != nil && ok && wb.buf != nil {
		p.SetIndexBuffer(wb.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (b *wgpuRendererBackendImpl) Draw(vertexCount uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p := b.pass("draw"); p != nil {
		p.Draw(vertexCount, 1, 0, 0)
	}
}

func (b *wgpuRendererBackendImpl) DrawIndexed(indexCount, firstIndex uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p := b.pass("draw indexed"); p != nil {
		p.DrawIndexed(indexCount, 1, firstIndex, 0, 0)
	}
}

func (b *wgpuRendererBackendImpl) EndPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoPass
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoCommands
	}
	if b.framePass != nil {
		b.framePass.End()
		b.framePass.Release()
		b.framePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return errors.New("present: no backbuffer acquired")
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

func (b *wgpuRendererBackendImpl) DiscardBackbuffer() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass != nil {
		b.framePass.Release()
		b.framePass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

type wgpuTexture struct {
	tex  *wgpu.Texture
	desc TextureDescriptor
}

func (t *wgpuTexture) Label() string         { return t.desc.Label }
func (t *wgpuTexture) Width() uint32         { return t.desc.Width }
func (t *wgpuTexture) Height() uint32        { return t.desc.Height }
func (t *wgpuTexture) SampleCount() uint32   { return t.desc.SampleCount }
func (t *wgpuTexture) Format() TextureFormat { return t.desc.Format }

func (t *wgpuTexture) CreateView(label string) (TextureView, error) {
	if t.tex == nil {
		return nil, fmt.Errorf("create view %q: %w", label, ErrReleased)
	}
	view, err := t.tex.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("create view %q: %w", label, err)
	}
	return &wgpuView{view: view, label: label, width: t.desc.Width, height: t.desc.Height}, nil
}

func (t *wgpuTexture) Release() {
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

type wgpuView struct {
	view   *wgpu.TextureView
	label  string
	width  uint32
	height uint32
	// borrowed views belong to the swapchain and are released by Present.
	borrowed bool
}

func (v *wgpuView) Label() string  { return v.label }
func (v *wgpuView) Width() uint32  { return v.width }
func (v *wgpuView) Height() uint32 { return v.height }

func (v *wgpuView) Release() {
	if v.borrowed {
		return
	}
	if v.view != nil {
		v.view.Release()
		v.view = nil
	}
}

type wgpuBuffer struct {
	buf   *wgpu.Buffer
	label string
	size  uint64
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

type wgpuSampler struct {
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}

type wgpuLayout struct {
	layout *wgpu.PipelineLayout
	groups []*wgpu.BindGroupLayout
	label  string
}

func (l *wgpuLayout) Label() string { return l.label }

func (l *wgpuLayout) Release() {
	for _, g := range l.groups {
		g.Release()
	}
	l.groups = nil
	if l.layout != nil {
		l.layout.Release()
		l.layout = nil
	}
}

type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
	label    string
}

func (p *wgpuPipeline) Label() string { return p.label }

func (p *wgpuPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

type wgpuBindGroup struct {
	group *wgpu.BindGroup
}

func (g *wgpuBindGroup) Release() {
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
}
