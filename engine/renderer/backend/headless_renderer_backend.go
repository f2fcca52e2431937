package backend

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInjected is returned by the headless backend when a failure was injected with InjectFailure.
var ErrInjected = errors.New("injected failure")

// BackbufferLabel is the label of every backbuffer view handed out by AcquireBackbuffer.
const BackbufferLabel = "backbuffer"

// Op names a recorded backend operation.
type Op string

const (
	OpConfigureSurface     Op = "configure-surface"
	OpAcquireBackbuffer    Op = "acquire-backbuffer"
	OpCreateTexture        Op = "create-texture"
	OpCreateView           Op = "create-view"
	OpWriteTexture         Op = "write-texture"
	OpCreateSampler        Op = "create-sampler"
	OpCreateBuffer         Op = "create-buffer"
	OpWriteBuffer          Op = "write-buffer"
	OpCreatePipelineLayout Op = "create-pipeline-layout"
	OpCreatePipeline       Op = "create-pipeline"
	OpCreateBindGroup      Op = "create-bind-group"
	OpBeginCommands        Op = "begin-commands"
	OpBeginPass            Op = "begin-pass"
	OpSetViewport          Op = "set-viewport"
	OpSetPipeline          Op = "set-pipeline"
	OpSetBindGroup         Op = "set-bind-group"
	OpSetVertexBuffer      Op = "set-vertex-buffer"
	OpSetIndexBuffer       Op = "set-index-buffer"
	OpDraw                 Op = "draw"
	OpDrawIndexed          Op = "draw-indexed"
	OpEndPass              Op = "end-pass"
	OpSubmit               Op = "submit"
	OpPresent              Op = "present"
	OpDiscardBackbuffer    Op = "discard-backbuffer"
)

// ResourceKind classifies live headless resources.
type ResourceKind string

const (
	KindTexture        ResourceKind = "texture"
	KindTextureView    ResourceKind = "texture-view"
	KindBuffer         ResourceKind = "buffer"
	KindSampler        ResourceKind = "sampler"
	KindPipelineLayout ResourceKind = "pipeline-layout"
	KindPipeline       ResourceKind = "pipeline"
	KindBindGroup      ResourceKind = "bind-group"
)

// Call is one recorded backend operation.
type Call struct {
	Op Op
	// Label is the resource, pass or pipeline label the call refers to.
	Label string
	// Target is the colour attachment label of a BeginPass call.
	Target string
	// Resolve is the resolve target label of a BeginPass call.
	Resolve string
	// Depth is the depth attachment label of a BeginPass call.
	Depth string
	// Width and Height are set for surface configuration, viewports and texture creation.
	Width, Height uint32
	// Count is the vertex or index count of a draw.
	Count uint32
	// Views lists the texture view labels of a bind group.
	Views []string
}

// HeadlessRendererBackend is a RendererBackend without a GPU that exposes its recorded state.
type HeadlessRendererBackend interface {
	RendererBackend

	// Calls returns a copy of every recorded call since the last ResetCalls.
	Calls() []Call

	// ResetCalls clears the recorded call list.
	ResetCalls()

	// Live returns the number of unreleased resources of the given kind.
	Live(kind ResourceKind) int

	// LiveTotal returns the number of unreleased resources of every kind.
	LiveTotal() int

	// InjectFailure makes the nth subsequent call of op fail with ErrInjected (n >= 1).
	InjectFailure(op Op, nth int)

	// PresentCount returns how many frames have been presented.
	PresentCount() int

	// SurfaceSize returns the configured swapchain size.
	SurfaceSize() (width, height uint32)

	// Violations returns command-ordering errors observed so far, such as draws outside a pass.
	Violations() []error
}

type headlessRendererBackendImpl struct {
	mu *sync.Mutex

	info          AdapterInfo
	surfaceFormat TextureFormat

	surfaceWidth  uint32
	surfaceHeight uint32
	presentMode   PresentMode

	live     map[ResourceKind]int
	calls    []Call
	failures map[Op]int

	commandsOpen bool
	passOpen     bool
	pipelineSet  bool
	backbuffer   *headlessView

	presents   int
	violations []error
}

// HeadlessBackendOption configures the headless backend.
type HeadlessBackendOption func(*headlessRendererBackendImpl)

// WithAdapterInfo sets the adapter metadata the headless backend reports.
//
// Parameters:
//   - info: the adapter metadata
//
// Returns:
//   - HeadlessBackendOption: option function to apply
func WithAdapterInfo(info AdapterInfo) HeadlessBackendOption {
	return func(b *headlessRendererBackendImpl) {
		b.info = info
	}
}

// WithSurfaceFormat sets the backbuffer format the headless backend reports.
//
// Parameters:
//   - format: the swapchain texel format
//
// Returns:
//   - HeadlessBackendOption: option function to apply
func WithSurfaceFormat(format TextureFormat) HeadlessBackendOption {
	return func(b *headlessRendererBackendImpl) {
		b.surfaceFormat = format
	}
}

var _ HeadlessRendererBackend = &headlessRendererBackendImpl{}

// NewHeadlessRendererBackend creates a GPU-less backend.
//
// Parameters:
//   - options: functional options for adapter metadata and surface format
//
// Returns:
//   - HeadlessRendererBackend: the created backend
func NewHeadlessRendererBackend(options ...HeadlessBackendOption) HeadlessRendererBackend {
	b := &headlessRendererBackendImpl{
		mu: &sync.Mutex{},
		info: AdapterInfo{
			Name:              "Headless Adapter",
			Vendor:            "lumen",
			Backend:           BackendTypeHeadless.String(),
			DedicatedMemoryMB: 0,
		},
		surfaceFormat: TextureFormatBGRA8Unorm,
		live:          make(map[ResourceKind]int),
		failures:      make(map[Op]int),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *headlessRendererBackendImpl) Type() BackendType {
	return BackendTypeHeadless
}

func (b *headlessRendererBackendImpl) AdapterInfo() AdapterInfo {
	return b.info
}

func (b *headlessRendererBackendImpl) SurfaceFormat() TextureFormat {
	return b.surfaceFormat
}

// fail records c and reports whether an injected failure fires for it. Caller holds mu.
func (b *headlessRendererBackendImpl) fail(c Call) error {
	b.calls = append(b.calls, c)
	n, ok := b.failures[c.Op]
	if !ok {
		return nil
	}
	n--
	if n > 0 {
		b.failures[c.Op] = n
		return nil
	}
	delete(b.failures, c.Op)
	return fmt.Errorf("%s %q: %w", c.Op, c.Label, ErrInjected)
}

func (b *headlessRendererBackendImpl) violate(format string, args ...any) {
	b.violations = append(b.violations, fmt.Errorf(format, args...))
}

func (b *headlessRendererBackendImpl) ConfigureSurface(width, height uint32, mode PresentMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpConfigureSurface, Width: width, Height: height}); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("configure surface: invalid size %dx%d", width, height)
	}
	b.surfaceWidth = width
	b.surfaceHeight = height
	b.presentMode = mode
	return nil
}

func (b *headlessRendererBackendImpl) AcquireBackbuffer() (TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpAcquireBackbuffer, Label: BackbufferLabel}); err != nil {
		return nil, err
	}
	if b.surfaceWidth == 0 {
		return nil, errors.New("acquire backbuffer: surface is not configured")
	}
	if b.backbuffer != nil {
		return nil, errors.New("acquire backbuffer: previous frame surface not yet presented")
	}
	b.backbuffer = &headlessView{
		label:   BackbufferLabel,
		width:   b.surfaceWidth,
		height:  b.surfaceHeight,
		samples: 1,
	}
	return b.backbuffer, nil
}

func (b *headlessRendererBackendImpl) CreateTexture(desc TextureDescriptor) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpCreateTexture, Label: desc.Label, Width: desc.Width, Height: desc.Height}); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("create texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	b.live[KindTexture]++
	return &headlessTexture{
		backend: b,
		desc:    desc,
		samples: max(desc.SampleCount, 1),
	}, nil
}

func (b *headlessRendererBackendImpl) WriteTexture(tex Texture, pixels []byte, bytesPerRow uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpWriteTexture, Label: tex.Label()}); err != nil {
		return err
	}
	if want := uint64(bytesPerRow) * uint64(tex.Height()); uint64(len(pixels)) < want {
		return fmt.Errorf("write texture %q: have %d bytes, want %d", tex.Label(), len(pixels), want)
	}
	return nil
}

func (b *headlessRendererBackendImpl) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpCreateSampler, Label: desc.Label}); err != nil {
		return nil, err
	}
	b.live[KindSampler]++
	return &headlessResource{backend: b, kind: KindSampler, label: desc.Label}, nil
}

func (b *headlessRendererBackendImpl) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpCreateBuffer, Label: desc.Label}); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("create buffer %q: zero size", desc.Label)
	}
	b.live[KindBuffer]++
	return &headlessBuffer{headlessResource: headlessResource{backend: b, kind: KindBuffer, label: desc.Label}, size: desc.Size}, nil
}

func (b *headlessRendererBackendImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpWriteBuffer, Label: buf.Label()}); err != nil {
		return err
	}
	if hb, ok := buf.(*headlessBuffer); ok && hb.released {
		return fmt.Errorf("write buffer %q: %w", buf.Label(), ErrReleased)
	}
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d overflow size %d", buf.Label(), len(data), offset, buf.Size())
	}
	return nil
}

func (b *headlessRendererBackendImpl) CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpCreatePipelineLayout, Label: desc.Label}); err != nil {
		return nil, err
	}
	b.live[KindPipelineLayout]++
	return &headlessLayout{headlessResource: headlessResource{backend: b, kind: KindPipelineLayout, label: desc.Label}, groups: desc.BindGroups}, nil
}

func (b *headlessRendererBackendImpl) CreateRenderPipeline(desc PipelineDescriptor) (RenderPipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpCreatePipeline, Label: desc.Label}); err != nil {
		return nil, err
	}
	if desc.Layout == nil {
		return nil, fmt.Errorf("create pipeline %q: missing layout", desc.Label)
	}
	if desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return nil, fmt.Errorf("create pipeline %q: missing entry point", desc.Label)
	}
	b.live[KindPipeline]++
	return &headlessResource{backend: b, kind: KindPipeline, label: desc.Label}, nil
}

func (b *headlessRendererBackendImpl) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]string, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		if e.TextureView != nil {
			views = append(views, e.TextureView.Label())
		}
	}
	if err := b.fail(Call{Op: OpCreateBindGroup, Label: desc.Label, Views: views}); err != nil {
		return nil, err
	}
	layout, ok := desc.Layout.(*headlessLayout)
	if !ok || layout.released {
		return nil, fmt.Errorf("create bind group %q: invalid layout", desc.Label)
	}
	if int(desc.Group) >= len(layout.groups) {
		return nil, fmt.Errorf("create bind group %q: group %d out of range", desc.Label, desc.Group)
	}
	if want := len(layout.groups[desc.Group]); want != len(desc.Entries) {
		return nil, fmt.Errorf("create bind group %q: have %d entries, layout wants %d", desc.Label, len(desc.Entries), want)
	}
	for _, e := range desc.Entries {
		if e.Buffer == nil && e.TextureView == nil && e.Sampler == nil {
			return nil, fmt.Errorf("create bind group %q: binding %d is empty", desc.Label, e.Binding)
		}
	}
	b.live[KindBindGroup]++
	return &headlessResource{backend: b, kind: KindBindGroup, label: desc.Label}, nil
}

func (b *headlessRendererBackendImpl) BeginCommands() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpBeginCommands}); err != nil {
		return err
	}
	if b.commandsOpen {
		return errors.New("begin commands: encoder already open")
	}
	b.commandsOpen = true
	return nil
}

func (b *headlessRendererBackendImpl) BeginPass(desc PassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := Call{Op: OpBeginPass, Label: desc.Label}
	if desc.Color.View != nil {
		c.Target = desc.Color.View.Label()
	}
	if desc.Color.ResolveTarget != nil {
		c.Resolve = desc.Color.ResolveTarget.Label()
	}
	if desc.Depth != nil && desc.Depth.View != nil {
		c.Depth = desc.Depth.View.Label()
	}
	if err := b.fail(c); err != nil {
		return err
	}
	if !b.commandsOpen {
		return ErrNoCommands
	}
	if b.passOpen {
		return errors.New("begin pass: a pass is already open")
	}
	color, ok := desc.Color.View.(*headlessView)
	if !ok || color.released {
		return fmt.Errorf("begin pass %q: invalid colour attachment", desc.Label)
	}
	if desc.Depth != nil {
		depth, ok := desc.Depth.View.(*headlessView)
		if !ok || depth.released {
			return fmt.Errorf("begin pass %q: invalid depth attachment", desc.Label)
		}
		if depth.samples != color.samples || depth.width != color.width || depth.height != color.height {
			b.violate("begin pass %q: depth %dx%dx%d does not match colour %dx%dx%d", desc.Label,
				depth.width, depth.height, depth.samples, color.width, color.height, color.samples)
		}
	}
	if rt, ok := desc.Color.ResolveTarget.(*headlessView); ok && (rt.width != color.width || rt.height != color.height) {
		b.violate("begin pass %q: resolve target size does not match colour attachment", desc.Label)
	}
	b.passOpen = true
	b.pipelineSet = false
	return nil
}

func (b *headlessRendererBackendImpl) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpSetViewport, Width: uint32(width), Height: uint32(height)})
	if !b.passOpen {
		b.violate("set viewport: %w", ErrNoPass)
	}
}

func (b *headlessRendererBackendImpl) SetPipeline(p RenderPipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpSetPipeline, Label: p.Label()})
	if !b.passOpen {
		b.violate("set pipeline %q: %w", p.Label(), ErrNoPass)
	}
	b.pipelineSet = true
}

func (b *headlessRendererBackendImpl) SetBindGroup(index uint32, bg BindGroup) {
	b.mu.Lock()
	defer b.mu.Unlock()

	label := ""
	if r, ok := bg.(*headlessResource); ok {
		label = r.label
		if r.released {
			b.violate("set bind group %q: %w", label, ErrReleased)
		}
	}
	b.calls = append(b.calls, Call{Op: OpSetBindGroup, Label: label, Count: index})
	if !b.passOpen {
		b.violate("set bind group %q: %w", label, ErrNoPass)
	}
}

func (b *headlessRendererBackendImpl) SetVertexBuffer(buf Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpSetVertexBuffer, Label: buf.Label()})
	if !b.passOpen {
		b.violate("set vertex buffer: %w", ErrNoPass)
	}
}

func (b *headlessRendererBackendImpl) SetIndexBuffer(buf Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpSetIndexBuffer, Label: buf.Label()})
	if !b.passOpen {
		b.violate("set index buffer: %w", ErrNoPass)
	}
}

func (b *headlessRendererBackendImpl) Draw(vertexCount uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpDraw, Count: vertexCount})
	if !b.passOpen || !b.pipelineSet {
		b.violate("draw: no pass or pipeline bound")
	}
}

func (b *headlessRendererBackendImpl) DrawIndexed(indexCount, firstIndex uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpDrawIndexed, Count: indexCount})
	if !b.passOpen || !b.pipelineSet {
		b.violate("draw indexed: no pass or pipeline bound")
	}
}

func (b *headlessRendererBackendImpl) EndPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpEndPass}); err != nil {
		b.passOpen = false
		return err
	}
	if !b.passOpen {
		return ErrNoPass
	}
	b.passOpen = false
	return nil
}

func (b *headlessRendererBackendImpl) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpSubmit}); err != nil {
		b.commandsOpen = false
		b.passOpen = false
		return err
	}
	if !b.commandsOpen {
		return ErrNoCommands
	}
	if b.passOpen {
		b.violate("submit: a pass is still open")
		b.passOpen = false
	}
	b.commandsOpen = false
	return nil
}

func (b *headlessRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpPresent, Label: BackbufferLabel}); err != nil {
		b.backbuffer = nil
		return err
	}
	if b.backbuffer == nil {
		return errors.New("present: no backbuffer acquired")
	}
	b.backbuffer.released = true
	b.backbuffer = nil
	b.presents++
	return nil
}

func (b *headlessRendererBackendImpl) DiscardBackbuffer() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Op: OpDiscardBackbuffer, Label: BackbufferLabel})
	if b.backbuffer == nil {
		return
	}
	b.backbuffer.released = true
	b.backbuffer = nil
}

func (b *headlessRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.backbuffer = nil
	b.commandsOpen = false
	b.passOpen = false
}

func (b *headlessRendererBackendImpl) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *headlessRendererBackendImpl) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = nil
}

func (b *headlessRendererBackendImpl) Live(kind ResourceKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.live[kind]
}

func (b *headlessRendererBackendImpl) LiveTotal() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, n := range b.live {
		total += n
	}
	return total
}

func (b *headlessRendererBackendImpl) InjectFailure(op Op, nth int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if nth < 1 {
		nth = 1
	}
	b.failures[op] = nth
}

func (b *headlessRendererBackendImpl) PresentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.presents
}

func (b *headlessRendererBackendImpl) SurfaceSize() (uint32, uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.surfaceWidth, b.surfaceHeight
}

func (b *headlessRendererBackendImpl) Violations() []error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]error, len(b.violations))
	copy(out, b.violations)
	return out
}

// releaseKind decrements the live count of kind.
func (b *headlessRendererBackendImpl) releaseKind(kind ResourceKind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.live[kind]--
}

type headlessResource struct {
	backend  *headlessRendererBackendImpl
	kind     ResourceKind
	label    string
	released bool
}

func (r *headlessResource) Label() string {
	return r.label
}

func (r *headlessResource) Release() {
	if r.released {
		return
	}
	r.released = true
	r.backend.releaseKind(r.kind)
}

type headlessBuffer struct {
	headlessResource
	size uint64
}

func (b *headlessBuffer) Size() uint64 {
	return b.size
}

type headlessLayout struct {
	headlessResource
	groups [][]BindingLayout
}

type headlessTexture struct {
	backend  *headlessRendererBackendImpl
	desc     TextureDescriptor
	samples  uint32
	released bool
}

func (t *headlessTexture) Label() string         { return t.desc.Label }
func (t *headlessTexture) Width() uint32         { return t.desc.Width }
func (t *headlessTexture) Height() uint32        { return t.desc.Height }
func (t *headlessTexture) SampleCount() uint32   { return t.samples }
func (t *headlessTexture) Format() TextureFormat { return t.desc.Format }

func (t *headlessTexture) CreateView(label string) (TextureView, error) {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fail(Call{Op: OpCreateView, Label: label, Width: t.desc.Width, Height: t.desc.Height}); err != nil {
		return nil, err
	}
	if t.released {
		return nil, fmt.Errorf("create view %q: %w", label, ErrReleased)
	}
	b.live[KindTextureView]++
	return &headlessView{
		backend: b,
		label:   label,
		width:   t.desc.Width,
		height:  t.desc.Height,
		samples: t.samples,
		counted: true,
	}, nil
}

func (t *headlessTexture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.backend.releaseKind(KindTexture)
}

type headlessView struct {
	backend  *headlessRendererBackendImpl
	label    string
	width    uint32
	height   uint32
	samples  uint32
	counted  bool
	released bool
}

func (v *headlessView) Label() string  { return v.label }
func (v *headlessView) Width() uint32  { return v.width }
func (v *headlessView) Height() uint32 { return v.height }

func (v *headlessView) Release() {
	if v.released {
		return
	}
	v.released = true
	if v.counted {
		v.backend.releaseKind(KindTextureView)
	}
}
