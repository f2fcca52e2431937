// Package frame drives one rendered frame end to end: the environment background, the lit
// geometry of the selected scene, the tone-mapped composite into the backbuffer, the UI hook
// and presentation. It also serializes window resizes with frame submission.
package frame

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/device"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/mesh"
	"github.com/Carmen-Shannon/lumen/engine/profiler"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/renderer/passstate"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
	"github.com/Carmen-Shannon/lumen/engine/renderer/target"
	"github.com/Carmen-Shannon/lumen/engine/texture"
	"github.com/google/uuid"
)

// ToneMapVertexCount is the vertex count of the full-screen triangle strip.
const ToneMapVertexCount = 4

// ErrReleased is returned by Frame after Release.
var ErrReleased = errors.New("orchestrator has been released")

// UIHook draws on top of the tone-mapped image. It runs inside the backbuffer pass, after the
// tone-map draw and before presentation. A returned error is logged, the frame still presents.
type UIHook func(be backend.RendererBackend, params FrameParameters, stats Stats) error

// Stats describes the last completed frame.
type Stats struct {
	Frame uint64
	// Draws counts the indexed draws issued, the background included.
	Draws int
	// Skipped counts sub-meshes dropped because their uniform upload or bind group failed.
	Skipped int
	// StaleUniforms counts camera, light and tone map uploads that failed; the frame drew with
	// the previous contents of those buffers.
	StaleUniforms int
	Size          common.Extent
	Scene         SceneID
}

// session is the bookkeeping that survives across frames.
type session struct {
	frame   uint64
	elapsed time.Duration
	prof    *profiler.Profiler
	stats   Stats
	params  FrameParameters
}

type orchestratorImpl struct {
	mu *sync.Mutex

	dev    device.Device
	be     backend.RendererBackend
	cam    camera.Camera
	light  light.Light
	target target.RenderTargetSet
	pass   passstate.PassState
	cache  texture.Cache

	geometry   pipeline.Variants
	background pipeline.Variants
	toneMap    pipeline.Pipeline

	cameraBuffer  backend.Buffer
	lightBuffer   backend.Buffer
	toneMapBuffer backend.Buffer

	geometryFrame   backend.BindGroup
	backgroundFrame backend.BindGroup

	toneMapSampler backend.Sampler
	toneMapGroup   backend.BindGroup
	toneMapGen     uuid.UUID

	sky   mesh.DrawableMesh
	slots map[drawKey]*drawSlot

	scenes *sceneRegistry
	scene  SceneID

	// pending is the latest window size not yet applied; guarded by mu.
	pending    common.Extent
	hasPending bool

	clearColor  common.Color
	toneMapVals ToneMap
	uiHook      UIHook

	recorder      *passstate.Recorder
	environment   common.TextureStagingData
	strictShaders bool
	historySize   int

	session  session
	released bool
}

// Orchestrator renders frames into the device it was created with.
// Frame must be called from the render goroutine; Resize, SelectScene and the setters may be
// called from any goroutine.
type Orchestrator interface {
	// RegisterScene adds meshes to a scene. The orchestrator takes ownership of the meshes and
	// releases them in Release.
	//
	// Parameters:
	//   - id: the scene
	//   - meshes: meshes drawn in order when the scene is selected
	//
	// Returns:
	//   - error: ErrUnknownScene for ids outside SceneIDs
	RegisterScene(id SceneID, meshes ...mesh.DrawableMesh) error

	// SelectScene selects the scene drawn by the geometry pass. The index is clamped into range.
	//
	// Parameters:
	//   - index: scene index, any integer
	//
	// Returns:
	//   - SceneID: the scene now selected
	SelectScene(index int) SceneID

	// Scene returns the selected scene.
	Scene() SceneID

	// Resize records a new window size. It is applied at the top of the next frame; zero sizes are ignored.
	//
	// Parameters:
	//   - width: new width in pixels
	//   - height: new height in pixels
	Resize(width, height uint32)

	// Frame renders and presents one frame.
	//
	// Parameters:
	//   - delta: time since the previous frame
	//
	// Returns:
	//   - error: error if the frame could not be started, composited or presented
	Frame(delta time.Duration) error

	SetClearColor(c common.Color)
	ClearColor() common.Color

	// SetToneMap stores tone-map inputs. Any float is accepted; values are sanitized per frame.
	SetToneMap(t ToneMap)
	ToneMap() ToneMap

	// SetUIHook installs the function that draws the UI overlay, nil removes it.
	SetUIHook(hook UIHook)

	// Textures returns the shared texture cache meshes should acquire their textures from.
	Textures() texture.Cache

	// Target returns the render target set.
	Target() target.RenderTargetSet

	// Parameters returns the parameters of the last frame.
	Parameters() FrameParameters

	// Stats returns the statistics of the last completed frame.
	Stats() Stats

	// FPSHistory returns recent per-frame FPS samples, oldest first.
	FPSHistory() []float32

	// Release destroys every GPU object the orchestrator created or owns. The device is not released.
	Release()
}

var _ Orchestrator = &orchestratorImpl{}

// NewOrchestrator builds the render targets, programs, pipeline variants, frame uniforms and the
// environment sphere for dev. Any failure releases what was created so far.
//
// Parameters:
//   - dev: the initialized device
//   - cam: the camera the view matrix is read from each frame
//   - lt: the directional light
//   - options: functional options
//
// Returns:
//   - Orchestrator: the orchestrator ready for Frame
//   - error: error naming the construction step that failed
func NewOrchestrator(dev device.Device, cam camera.Camera, lt light.Light, options ...OrchestratorBuilderOption) (Orchestrator, error) {
	o := &orchestratorImpl{
		mu:          &sync.Mutex{},
		dev:         dev,
		be:          dev.Backend(),
		cam:         cam,
		light:       lt,
		slots:       make(map[drawKey]*drawSlot),
		scenes:      newSceneRegistry(),
		clearColor:  DefaultClearColor,
		toneMapVals: DefaultToneMap(),
		environment: texture.Environment(256, 128, texture.DefaultGradient),
		historySize: profiler.DefaultHistory,
	}
	for _, opt := range options {
		opt(o)
	}

	o.pass = passstate.NewPassState(passstate.WithRecorder(o.recorder))
	o.session.prof = profiler.NewProfiler(profiler.WithHistory(o.historySize))

	if err := o.build(); err != nil {
		o.Release()
		return nil, err
	}
	return o, nil
}

func (o *orchestratorImpl) build() error {
	sc := o.dev.Swapchain()
	o.target = target.NewRenderTargetSet(o.dev)
	if err := o.target.Build(sc.Width, sc.Height, o.dev.SampleCount()); err != nil {
		return fmt.Errorf("build render targets: %w", err)
	}

	cache, err := texture.NewCache(o.be)
	if err != nil {
		return fmt.Errorf("create texture cache: %w", err)
	}
	o.cache = cache

	programOpts := []shader.ProgramBuilderOption{shader.WithStrictValidation(o.strictShaders)}
	lightProgram, err := shader.NewLightProgram(programOpts...)
	if err != nil {
		return fmt.Errorf("light program: %w", err)
	}
	skyboxProgram, err := shader.NewSkyboxProgram(programOpts...)
	if err != nil {
		return fmt.Errorf("skybox program: %w", err)
	}
	toneMapProgram, err := shader.NewToneMapProgram(programOpts...)
	if err != nil {
		return fmt.Errorf("tonemap program: %w", err)
	}

	sceneOpts := []pipeline.PipelineBuilderOption{
		pipeline.WithColorFormat(target.HDRFormat),
		pipeline.WithSampleCount(o.target.SampleCount()),
	}
	if o.geometry, err = pipeline.NewVariants(o.be, lightProgram, o.target.DepthState, sceneOpts...); err != nil {
		return err
	}
	if o.background, err = pipeline.NewVariants(o.be, skyboxProgram, o.target.DepthState, sceneOpts...); err != nil {
		return err
	}
	o.toneMap, err = pipeline.NewPipeline(o.be, toneMapProgram,
		pipeline.WithLabel(shader.ProgramToneMap),
		pipeline.WithColorFormat(o.be.SurfaceFormat()),
		pipeline.WithSampleCount(1),
	)
	if err != nil {
		return err
	}

	if o.cameraBuffer, err = o.uniformBuffer("camera", lightProgram, shader.GroupFrame, shader.BindingCamera); err != nil {
		return err
	}
	if o.lightBuffer, err = o.uniformBuffer("light", lightProgram, shader.GroupFrame, shader.BindingLight); err != nil {
		return err
	}
	if o.toneMapBuffer, err = o.uniformBuffer("tonemap-params", toneMapProgram, 0, shader.BindingToneMapParams); err != nil {
		return err
	}

	o.geometryFrame, err = o.be.CreateBindGroup(backend.BindGroupDescriptor{
		Label:  "geometry-frame",
		Layout: o.geometry.Layout(),
		Group:  shader.GroupFrame,
		Entries: []backend.BindGroupEntry{
			{Binding: shader.BindingCamera, Buffer: o.cameraBuffer},
			{Binding: shader.BindingLight, Buffer: o.lightBuffer},
		},
	})
	if err != nil {
		return fmt.Errorf("create geometry frame bind group: %w", err)
	}
	o.backgroundFrame, err = o.be.CreateBindGroup(backend.BindGroupDescriptor{
		Label:   "background-frame",
		Layout:  o.background.Layout(),
		Group:   shader.GroupFrame,
		Entries: []backend.BindGroupEntry{{Binding: shader.BindingCamera, Buffer: o.cameraBuffer}},
	})
	if err != nil {
		return fmt.Errorf("create background frame bind group: %w", err)
	}

	o.toneMapSampler, err = o.be.CreateSampler(backend.SamplerDescriptor{
		Label:       "tonemap",
		AddressMode: backend.AddressModeClampToEdge,
		Filter:      backend.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create tonemap sampler: %w", err)
	}

	envFormat := backend.TextureFormatRGBA8Unorm
	if o.environment.BytesPerPixel == 8 {
		envFormat = backend.TextureFormatRGBA16Float
	}
	envView, err := o.cache.Acquire(texture.EnvironmentKey, o.environment, envFormat)
	if err != nil {
		return fmt.Errorf("upload environment: %w", err)
	}
	var sub mesh.SubMesh
	sub.Textures[mesh.SlotDiffuse] = envView
	sphere := mesh.Sphere(1, 16, 32)
	sub.IndexCount = uint32(len(sphere.Indices))
	if o.sky, err = mesh.NewDrawableMesh(o.be, sphere, mesh.WithName("sky"), mesh.WithSubMeshes(sub)); err != nil {
		return fmt.Errorf("create sky sphere: %w", err)
	}

	if err := o.refreshToneMapGroup(); err != nil {
		return err
	}

	logging.LogInfo("frame orchestrator ready: %dx%d, %dx MSAA, backbuffer %s", sc.Width, sc.Height, o.target.SampleCount(), o.be.SurfaceFormat())
	return nil
}

// uniformBuffer creates a uniform buffer sized from the program's declaration.
func (o *orchestratorImpl) uniformBuffer(label string, program shader.Program, group, binding uint32) (backend.Buffer, error) {
	size, ok := program.UniformSize(group, binding)
	if !ok {
		return nil, fmt.Errorf("%s: program %s declares no uniform at group %d binding %d", label, program.Name(), group, binding)
	}
	buf, err := o.be.CreateBuffer(backend.BufferDescriptor{Label: label, Size: size, Usage: backend.BufferUsageUniform})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	return buf, nil
}

// refreshToneMapGroup rebinds the resolved HDR view after the render targets changed generation.
func (o *orchestratorImpl) refreshToneMapGroup() error {
	gen := o.target.Generation()
	if o.toneMapGroup != nil && gen == o.toneMapGen {
		return nil
	}
	bg, err := o.be.CreateBindGroup(backend.BindGroupDescriptor{
		Label:  "tonemap",
		Layout: o.toneMap.Layout(),
		Group:  0,
		Entries: []backend.BindGroupEntry{
			{Binding: shader.BindingToneMapParams, Buffer: o.toneMapBuffer},
			{Binding: shader.BindingToneMapSampler, Sampler: o.toneMapSampler},
			{Binding: shader.BindingToneMapHDR, TextureView: o.target.HDRView()},
		},
	})
	if err != nil {
		return fmt.Errorf("create tonemap bind group: %w", err)
	}
	if o.toneMapGroup != nil {
		o.toneMapGroup.Release()
	}
	o.toneMapGroup = bg
	o.toneMapGen = gen
	return nil
}

func (o *orchestratorImpl) RegisterScene(id SceneID, meshes ...mesh.DrawableMesh) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.scenes.register(id, meshes); err != nil {
		return err
	}
	logging.LogDebug("scene %s: %d meshes registered", id, len(meshes))
	return nil
}

func (o *orchestratorImpl) SelectScene(index int) SceneID {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.scene = SceneFromIndex(index)
	return o.scene
}

func (o *orchestratorImpl) Scene() SceneID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scene
}

func (o *orchestratorImpl) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = common.Extent{Width: int(width), Height: int(height)}
	o.hasPending = true
}

func (o *orchestratorImpl) SetClearColor(c common.Color) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearColor = c
}

func (o *orchestratorImpl) ClearColor() common.Color {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clearColor
}

func (o *orchestratorImpl) SetToneMap(t ToneMap) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.toneMapVals = t
}

func (o *orchestratorImpl) ToneMap() ToneMap {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.toneMapVals
}

func (o *orchestratorImpl) SetUIHook(hook UIHook) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uiHook = hook
}

func (o *orchestratorImpl) Textures() texture.Cache {
	return o.cache
}

func (o *orchestratorImpl) Target() target.RenderTargetSet {
	return o.target
}

func (o *orchestratorImpl) Parameters() FrameParameters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.params
}

func (o *orchestratorImpl) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.stats
}

func (o *orchestratorImpl) FPSHistory() []float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.prof.History()
}

// frameInputs is the snapshot of the cross-goroutine state a frame works from.
type frameInputs struct {
	resize     common.Extent
	hasResize  bool
	scene      SceneID
	meshes     []mesh.DrawableMesh
	clearColor common.Color
	toneMap    ToneMap
	uiHook     UIHook
}

// snapshot copies the inputs of one frame. It reports false once the orchestrator is released.
func (o *orchestratorImpl) snapshot() (frameInputs, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return frameInputs{}, false
	}
	in := frameInputs{
		resize:     o.pending,
		hasResize:  o.hasPending,
		scene:      o.scene,
		meshes:     o.scenes.get(o.scene),
		clearColor: o.clearColor,
		toneMap:    o.toneMapVals,
		uiHook:     o.uiHook,
	}
	o.hasPending = false
	return in, true
}

func (o *orchestratorImpl) Frame(delta time.Duration) error {
	in, ok := o.snapshot()
	if !ok {
		return ErrReleased
	}

	if in.hasResize {
		// A failed resize keeps the previous targets; the next Resize call retries.
		if err := o.target.Resize(uint32(in.resize.Width), uint32(in.resize.Height)); err != nil {
			logging.LogError("resize to %dx%d: %v", in.resize.Width, in.resize.Height, err)
		}
	}
	if err := o.refreshToneMapGroup(); err != nil {
		logging.LogError("%v", err)
	}

	params := o.parameters(delta, in)
	stats := Stats{Frame: params.Frame, Size: o.target.Size(), Scene: in.scene}
	stats.StaleUniforms = o.uploadFrameUniforms(params)
	if err := o.record(in, params, &stats); err != nil {
		o.target.Abort()
		return err
	}
	if err := o.dev.Present(); err != nil {
		return fmt.Errorf("present frame %d: %w", params.Frame, err)
	}

	o.mu.Lock()
	o.session.stats = stats
	o.session.prof.Tick()
	o.mu.Unlock()
	return nil
}

// parameters advances the session clock and builds this frame's parameters.
func (o *orchestratorImpl) parameters(delta time.Duration, in frameInputs) FrameParameters {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.session.frame++
	o.session.elapsed += max(delta, 0)

	projection := o.dev.ProjectionMatrix()
	o.session.params = FrameParameters{
		Frame:          o.session.frame,
		Elapsed:        float32(o.session.elapsed.Seconds()),
		Delta:          float32(max(delta, 0).Seconds()),
		World:          o.dev.WorldMatrix(),
		View:           o.cam.ViewMatrix(),
		Projection:     projection,
		CameraPosition: o.cam.Position(),
		Light:          o.light.GPU(),
		ToneMap:        in.toneMap.Sanitize(),
		Viewport:       o.target.Viewport(),
	}
	return o.session.params
}

// uploadFrameUniforms writes the camera, light and tone map buffers. A failed write is logged and
// leaves that buffer as the last frame wrote it. Returns the number of failed writes.
func (o *orchestratorImpl) uploadFrameUniforms(params FrameParameters) int {
	cam := o.cam.Uniform(params.Projection)
	lt := params.Light
	tm := params.ToneMap.GPU()
	uploads := []struct {
		name string
		buf  backend.Buffer
		data []byte
	}{
		{"camera", o.cameraBuffer, cam.Marshal()},
		{"light", o.lightBuffer, lt.Marshal()},
		{"tonemap parameters", o.toneMapBuffer, tm.Marshal()},
	}

	failed := 0
	for _, u := range uploads {
		if err := o.be.WriteBuffer(u.buf, 0, u.data); err != nil {
			logging.LogWarn("frame %d: upload %s: %v", params.Frame, u.name, err)
			failed++
		}
	}
	return failed
}

// record encodes every pass of the frame and submits it.
func (o *orchestratorImpl) record(in frameInputs, params FrameParameters, stats *Stats) error {
	if err := o.target.BeginScene(in.clearColor); err != nil {
		return err
	}

	o.pass.SetCulling(false)
	o.pass.SetDepth(false)
	o.drawPass(o.background, o.backgroundFrame, []mesh.DrawableMesh{o.sky}, params.World, stats)

	o.pass.SetCulling(true)
	o.pass.SetDepth(true)
	o.drawPass(o.geometry, o.geometryFrame, in.meshes, params.World, stats)

	if err := o.target.EndFrameComposite(); err != nil {
		return err
	}

	if o.toneMapGroup != nil && o.toneMapGen == o.target.Generation() {
		o.be.SetPipeline(o.toneMap.GPU())
		o.be.SetBindGroup(0, o.toneMapGroup)
		o.be.Draw(ToneMapVertexCount)
	} else {
		logging.LogWarn("frame %d: tone map skipped, HDR target not bound", params.Frame)
	}

	if in.uiHook != nil {
		if err := in.uiHook(o.be, params, *stats); err != nil {
			logging.LogError("frame %d: ui: %v", params.Frame, err)
		}
	}

	return o.target.EndComposite()
}

// drawPass binds the variant selected by the pass state and draws every sub-mesh of meshes.
// Each mesh transform is applied on top of the device world matrix base.
// Sub-meshes whose per-draw state fails are logged and skipped.
func (o *orchestratorImpl) drawPass(variants pipeline.Variants, frameGroup backend.BindGroup, meshes []mesh.DrawableMesh, base [16]float32, stats *Stats) {
	if len(meshes) == 0 {
		return
	}
	o.be.SetPipeline(variants.Select(o.pass.Current()).GPU())
	o.be.SetBindGroup(shader.GroupFrame, frameGroup)

	for _, m := range meshes {
		o.be.SetVertexBuffer(m.VertexBuffer())
		o.be.SetIndexBuffer(m.IndexBuffer())
		local := m.World()
		var world [16]float32
		common.Mul4(world[:], base[:], local[:])

		for i, sub := range m.SubMeshes() {
			if sub.IndexCount == 0 {
				continue
			}
			slot, err := o.slot(variants, m, i, sub)
			if err != nil {
				logging.LogError("%s[%d]: %v", m.Name(), i, err)
				stats.Skipped++
				continue
			}
			u := objectUniform(world, sub)
			if err := o.be.WriteBuffer(slot.buffer, 0, u.Marshal()); err != nil {
				logging.LogError("%s[%d]: upload object uniform: %v", m.Name(), i, err)
				stats.Skipped++
				continue
			}
			o.be.SetBindGroup(shader.GroupObject, slot.bindGroup)
			o.be.DrawIndexed(sub.IndexCount, sub.StartIndex)
			stats.Draws++
		}
	}
}

// slot returns the cached per-draw state of a sub-mesh, creating it on first use.
// A failed creation is retried on the next frame.
func (o *orchestratorImpl) slot(variants pipeline.Variants, m mesh.DrawableMesh, index int, sub mesh.SubMesh) (*drawSlot, error) {
	key := drawKey{mesh: m, index: index}
	if s, ok := o.slots[key]; ok {
		return s, nil
	}
	label := fmt.Sprintf("%s/%s[%d]", variants.Program().Name(), m.Name(), index)
	s, err := newDrawSlot(o.be, variants, label, sub, o.cache.Sampler(), o.cache.Fallback())
	if err != nil {
		return nil, err
	}
	o.slots[key] = s
	return s, nil
}

func (o *orchestratorImpl) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return
	}
	o.released = true

	for key, s := range o.slots {
		s.release()
		delete(o.slots, key)
	}
	o.scenes.release()
	if o.sky != nil {
		o.sky.Release()
	}
	for _, bg := range []backend.BindGroup{o.toneMapGroup, o.backgroundFrame, o.geometryFrame} {
		if bg != nil {
			bg.Release()
		}
	}
	if o.toneMapSampler != nil {
		o.toneMapSampler.Release()
	}
	for _, buf := range []backend.Buffer{o.toneMapBuffer, o.lightBuffer, o.cameraBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	if o.toneMap != nil {
		o.toneMap.Release()
	}
	if o.background != nil {
		o.background.Release()
	}
	if o.geometry != nil {
		o.geometry.Release()
	}
	if o.cache != nil {
		o.cache.Close()
	}
	if o.target != nil {
		o.target.Release()
	}
}
