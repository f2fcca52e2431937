// Package target owns the offscreen HDR colour target, the MSAA depth-stencil buffer and their views,
// and binds them or the swapchain backbuffer as the destination of each frame's passes.
package target

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/google/uuid"
)

// Resource labels, stable across rebuilds.
const (
	LabelDepth      = "depth"
	LabelHDR        = "hdr"
	LabelHDRResolve = "hdr-resolve"
	LabelHDRShader  = "hdr-shader"
)

const (
	// HDRFormat is the texel format of the HDR accumulation target.
	HDRFormat = backend.TextureFormatRGBA16Float
	// DepthFormat is the texel format of the depth-stencil buffer.
	DepthFormat = backend.TextureFormatDepth24PlusStencil8
)

var (
	// ErrZeroSize is returned when building with a zero width or height.
	ErrZeroSize = errors.New("render target size must be non-zero")
	// ErrNotBuilt is returned when the set is used before Build.
	ErrNotBuilt = errors.New("render target set has not been built")
	// ErrFrameInProgress is returned when the set is rebuilt between BeginScene and EndComposite.
	ErrFrameInProgress = errors.New("a frame is in progress")
	// ErrNoFrame is returned when a frame step is called out of order.
	ErrNoFrame = errors.New("frame step called out of order")
)

// Swapchain is the part of the device the set resizes along with its own resources.
type Swapchain interface {
	Backend() backend.RendererBackend
	ResizeSwapchain(width, height uint32) error
}

type phase int

const (
	phaseIdle phase = iota
	phaseScene
	phaseComposite
)

// resources is one complete generation of attachments. It is either fully allocated or not at all.
type resources struct {
	width   uint32
	height  uint32
	samples uint32

	depth     backend.Texture
	depthView backend.TextureView

	hdr     backend.Texture
	hdrView backend.TextureView

	// resolve and resolveView are nil without MSAA, hdr is then sampled directly.
	resolve     backend.Texture
	resolveView backend.TextureView
	shaderView  backend.TextureView

	generation uuid.UUID
}

func (r *resources) release() {
	for _, v := range []backend.TextureView{r.shaderView, r.resolveView, r.hdrView, r.depthView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []backend.Texture{r.resolve, r.hdr, r.depth} {
		if t != nil {
			t.Release()
		}
	}
	*r = resources{}
}

// RenderTargetSet holds every attachment of the frame. Draw calls only ever observe a complete set:
// a resize stages a full replacement and swaps it in only when every allocation succeeded.
type RenderTargetSet interface {
	// Build allocates the depth buffer, the HDR target and their views. Any previous set is released.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	//   - sampleCount: MSAA samples of the depth buffer and HDR attachment
	//
	// Returns:
	//   - error: ErrZeroSize, or the allocation error with nothing left allocated
	Build(width, height, sampleCount uint32) error

	// Resize stages a new set at the given size, reconfigures the swapchain and swaps the new set in.
	// On failure the staged resources are released and the previous set stays bound.
	// Zero sizes are ignored. Resizing to the current size rebuilds.
	//
	// Parameters:
	//   - width: new width in pixels
	//   - height: new height in pixels
	//
	// Returns:
	//   - error: the allocation or swapchain error, the previous set is still valid
	Resize(width, height uint32) error

	// BeginScene opens the frame's command encoder and the HDR pass, clearing colour and depth.
	//
	// Parameters:
	//   - clear: the HDR clear colour
	//
	// Returns:
	//   - error: error if the frame could not be started
	BeginScene(clear common.Color) error

	// EndFrameComposite ends the HDR pass and opens the single pass that targets the swapchain backbuffer.
	// On failure the frame is aborted and no backbuffer is left held.
	//
	// Returns:
	//   - error: error if the backbuffer could not be acquired
	EndFrameComposite() error

	// EndComposite ends the backbuffer pass and submits the frame's commands. The backbuffer is left
	// for Present on success and discarded on failure.
	//
	// Returns:
	//   - error: error if ending the pass or submission failed
	EndComposite() error

	// Abort ends whatever pass is open, drops the frame's commands and discards an acquired backbuffer.
	Abort()

	Viewport() common.Viewport
	Size() common.Extent
	SampleCount() uint32

	// HDRView returns the shader-readable view of the resolved HDR target.
	HDRView() backend.TextureView

	// DepthState returns the depth configuration for geometry (enabled) or the background (disabled).
	DepthState(enabled bool) backend.DepthStencilState

	// Generation identifies the current set, it changes on every successful build.
	Generation() uuid.UUID

	// Release frees every attachment.
	Release()
}

type renderTargetSetImpl struct {
	mu *sync.Mutex

	swapchain Swapchain
	current   resources
	phase     phase
	// acquired is set while this frame holds a backbuffer that Present has not been handed.
	acquired bool

	depthOn  backend.DepthStencilState
	depthOff backend.DepthStencilState
}

var _ RenderTargetSet = &renderTargetSetImpl{}

// NewRenderTargetSet creates an empty set bound to the swapchain. Call Build before the first frame.
//
// Parameters:
//   - swapchain: the device whose swapchain is resized with the set
//
// Returns:
//   - RenderTargetSet: the unbuilt set
func NewRenderTargetSet(swapchain Swapchain) RenderTargetSet {
	return &renderTargetSetImpl{
		mu:        &sync.Mutex{},
		swapchain: swapchain,
		depthOn: backend.DepthStencilState{
			Format:       DepthFormat,
			TestEnabled:  true,
			WriteEnabled: true,
		},
		depthOff: backend.DepthStencilState{
			Format:       DepthFormat,
			TestEnabled:  false,
			WriteEnabled: false,
		},
	}
}

// allocate creates a full set of attachments, releasing whatever it created if a step fails.
func (t *renderTargetSetImpl) allocate(width, height, samples uint32) (resources, error) {
	b := t.swapchain.Backend()
	r := resources{width: width, height: height, samples: samples}

	fail := func(step string, err error) (resources, error) {
		r.release()
		return resources{}, fmt.Errorf("%s at %dx%d: %w", step, width, height, err)
	}

	var err error
	r.depth, err = b.CreateTexture(backend.TextureDescriptor{
		Label:       LabelDepth,
		Width:       width,
		Height:      height,
		SampleCount: samples,
		Format:      DepthFormat,
		Usage:       backend.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fail("create depth buffer", err)
	}
	if r.depthView, err = r.depth.CreateView(LabelDepth); err != nil {
		return fail("create depth view", err)
	}

	hdrUsage := backend.TextureUsageRenderAttachment
	if samples == 1 {
		hdrUsage |= backend.TextureUsageTextureBinding
	}
	r.hdr, err = b.CreateTexture(backend.TextureDescriptor{
		Label:       LabelHDR,
		Width:       width,
		Height:      height,
		SampleCount: samples,
		Format:      HDRFormat,
		Usage:       hdrUsage,
	})
	if err != nil {
		return fail("create hdr target", err)
	}
	if r.hdrView, err = r.hdr.CreateView(LabelHDR); err != nil {
		return fail("create hdr view", err)
	}

	shaderSource := r.hdr
	if samples > 1 {
		r.resolve, err = b.CreateTexture(backend.TextureDescriptor{
			Label:       LabelHDRResolve,
			Width:       width,
			Height:      height,
			SampleCount: 1,
			Format:      HDRFormat,
			Usage:       backend.TextureUsageRenderAttachment | backend.TextureUsageTextureBinding,
		})
		if err != nil {
			return fail("create hdr resolve target", err)
		}
		if r.resolveView, err = r.resolve.CreateView(LabelHDRResolve); err != nil {
			return fail("create hdr resolve view", err)
		}
		shaderSource = r.resolve
	}
	if r.shaderView, err = shaderSource.CreateView(LabelHDRShader); err != nil {
		return fail("create hdr shader view", err)
	}

	r.generation = uuid.New()
	return r, nil
}

func (t *renderTargetSetImpl) Build(width, height, sampleCount uint32) error {
	if width == 0 || height == 0 {
		return ErrZeroSize
	}
	sampleCount = max(sampleCount, 1)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != phaseIdle {
		return ErrFrameInProgress
	}
	r, err := t.allocate(width, height, sampleCount)
	if err != nil {
		return err
	}
	t.current.release()
	t.current = r

	logging.With("generation", r.generation).Debug("render targets built", "width", width, "height", height, "samples", sampleCount)
	return nil
}

func (t *renderTargetSetImpl) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.depth == nil {
		return ErrNotBuilt
	}
	if t.phase != phaseIdle {
		return ErrFrameInProgress
	}

	staged, err := t.allocate(width, height, t.current.samples)
	if err != nil {
		logging.LogWarn("resize to %dx%d failed, keeping %dx%d: %v", width, height, t.current.width, t.current.height, err)
		return err
	}
	if err := t.swapchain.ResizeSwapchain(width, height); err != nil {
		staged.release()
		logging.LogWarn("resize to %dx%d failed, keeping %dx%d: %v", width, height, t.current.width, t.current.height, err)
		return err
	}

	old := t.current
	t.current = staged
	old.release()

	logging.With("generation", staged.generation).Info("render targets resized", "width", width, "height", height)
	return nil
}

func (t *renderTargetSetImpl) BeginScene(clear common.Color) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.depth == nil {
		return ErrNotBuilt
	}
	if t.phase != phaseIdle {
		return ErrFrameInProgress
	}

	b := t.swapchain.Backend()
	if err := b.BeginCommands(); err != nil {
		return fmt.Errorf("begin scene: %w", err)
	}

	color := backend.ColorAttachment{
		View:       t.current.hdrView,
		LoadOp:     backend.LoadOpClear,
		ClearColor: clear,
	}
	if t.current.resolveView != nil {
		color.ResolveTarget = t.current.resolveView
	}
	if err := b.BeginPass(backend.PassDescriptor{
		Label: "scene",
		Color: color,
		Depth: &backend.DepthAttachment{
			View:         t.current.depthView,
			LoadOp:       backend.LoadOpClear,
			ClearDepth:   1,
			ClearStencil: 0,
		},
	}); err != nil {
		_ = b.Submit()
		return fmt.Errorf("begin scene: %w", err)
	}
	t.setViewport(b)
	t.phase = phaseScene
	return nil
}

func (t *renderTargetSetImpl) setViewport(b backend.RendererBackend) {
	vp := t.viewport()
	b.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
}

func (t *renderTargetSetImpl) EndFrameComposite() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != phaseScene {
		return ErrNoFrame
	}

	b := t.swapchain.Backend()
	if err := b.EndPass(); err != nil {
		t.abort(b)
		return fmt.Errorf("end scene pass: %w", err)
	}
	backbuffer, err := b.AcquireBackbuffer()
	if err != nil {
		t.abort(b)
		return fmt.Errorf("acquire backbuffer: %w", err)
	}
	t.acquired = true
	if err := b.BeginPass(backend.PassDescriptor{
		Label: "composite",
		Color: backend.ColorAttachment{
			View:       backbuffer,
			LoadOp:     backend.LoadOpClear,
			ClearColor: common.Color{A: 1},
		},
	}); err != nil {
		t.abort(b)
		return fmt.Errorf("begin composite pass: %w", err)
	}
	t.setViewport(b)
	t.phase = phaseComposite
	return nil
}

// EndComposite always submits the encoder. On success the backbuffer is left for Present,
// on failure it is discarded.
func (t *renderTargetSetImpl) EndComposite() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != phaseComposite {
		return ErrNoFrame
	}

	b := t.swapchain.Backend()
	var errs []error
	if err := b.EndPass(); err != nil {
		errs = append(errs, fmt.Errorf("end composite pass: %w", err))
	}
	if err := b.Submit(); err != nil {
		errs = append(errs, fmt.Errorf("submit frame: %w", err))
	}
	if len(errs) > 0 {
		b.DiscardBackbuffer()
	}
	t.acquired = false
	t.phase = phaseIdle
	return errors.Join(errs...)
}

func (t *renderTargetSetImpl) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == phaseIdle {
		return
	}
	t.abort(t.swapchain.Backend())
}

// abort closes whatever the frame left open and gives back an unpresented backbuffer. Caller holds mu.
func (t *renderTargetSetImpl) abort(b backend.RendererBackend) {
	_ = b.EndPass()
	_ = b.Submit()
	if t.acquired {
		b.DiscardBackbuffer()
		t.acquired = false
	}
	t.phase = phaseIdle
}

func (t *renderTargetSetImpl) viewport() common.Viewport {
	return common.ViewportFor(common.Extent{Width: int(t.current.width), Height: int(t.current.height)})
}

func (t *renderTargetSetImpl) Viewport() common.Viewport {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.viewport()
}

func (t *renderTargetSetImpl) Size() common.Extent {
	t.mu.Lock()
	defer t.mu.Unlock()

	return common.Extent{Width: int(t.current.width), Height: int(t.current.height)}
}

func (t *renderTargetSetImpl) SampleCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.current.samples
}

func (t *renderTargetSetImpl) HDRView() backend.TextureView {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.current.shaderView
}

func (t *renderTargetSetImpl) DepthState(enabled bool) backend.DepthStencilState {
	if enabled {
		return t.depthOn
	}
	return t.depthOff
}

func (t *renderTargetSetImpl) Generation() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.current.generation
}

func (t *renderTargetSetImpl) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current.release()
}
