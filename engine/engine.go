// Package engine ties the window, the device and the frame orchestrator into the application loop:
// the window drives resize and scene selection, a tick goroutine runs user logic and a render
// goroutine produces one frame per iteration. Without a window the engine renders a fixed number
// of frames on the calling goroutine.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/config"
	"github.com/Carmen-Shannon/lumen/engine/device"
	"github.com/Carmen-Shannon/lumen/engine/frame"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/window"
)

// HeadlessFrameTime is the fixed frame delta used when rendering without a window and without a frame limit.
const HeadlessFrameTime = time.Second / 60

// ErrNoFrames is returned by Run in headless mode when no frame count was set.
var ErrNoFrames = errors.New("headless run needs a frame count")

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	releaseOnce sync.Once

	cfg        config.Config
	window     window.Window
	ownsWindow bool
	headless   bool
	backend    backend.RendererBackend
	fullscreen bool

	dev   device.Device
	orch  frame.Orchestrator
	cam   camera.Camera
	light light.Light

	sceneLoader SceneLoader
	uiHook      frame.UIHook
	watchPath   string
	watcher     *config.Watcher

	frames int

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point of the renderer.
// It owns the window, the device and the orchestrator and runs the tick and render loops.
type Engine interface {
	// Window returns the underlying window, nil when headless.
	Window() window.Window

	// Device returns the GPU device.
	Device() device.Device

	// Orchestrator returns the frame orchestrator.
	Orchestrator() frame.Orchestrator

	// Camera returns the scene camera.
	Camera() camera.Camera

	// Light returns the directional light.
	Light() light.Light

	// Config returns the configuration the engine was built with, updated by hot reloads.
	Config() config.Config

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for camera movement, animation and input processing.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the engine. With a window it blocks until the window closes or Quit is called;
	// headless it renders the configured number of frames on the calling goroutine.
	//
	// Returns:
	//   - error: the first frame error in headless mode, nil otherwise
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release frees the orchestrator, the device and an engine-created window. Idempotent.
	Release()
}

// NewEngine builds the engine from cfg: it opens a window unless headless, creates the device,
// the camera and light, the orchestrator with the configured clear colour, tone map and scene,
// then loads every scene through the scene loader. Scenes that fail to load are logged and stay empty.
//
// Parameters:
//   - cfg: the validated configuration
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the configuration is invalid or the window, device or orchestrator could not be created
func NewEngine(cfg config.Config, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		running:         false,
		wg:              sync.WaitGroup{},
		cfg:             cfg,
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Log.Level != "" {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			logging.LogWarn("unknown log level %q: %v", cfg.Log.Level, err)
		}
	}
	if e.sceneLoader == nil {
		e.sceneLoader = ProceduralScenes(LoadTextures(cfg.Textures.Diffuse, cfg.Textures.Workers, cfg.Textures.MaxSize))
	}

	if err := e.build(); err != nil {
		e.Release()
		return nil, err
	}
	return e, nil
}

func (e *engine) build() error {
	var source device.SurfaceSource
	switch {
	case e.headless:
		source = &device.HeadlessSurface{Fullscreen: e.cfg.Window.Fullscreen}
		if e.backend == nil {
			e.backend = backend.NewHeadlessRendererBackend()
		}
	case e.window == nil:
		w, err := window.NewWindow(
			window.WithTitle(common.Coalesce(e.cfg.Window.Title, "lumen")),
			window.WithSize(int(e.cfg.Window.Width), int(e.cfg.Window.Height)),
		)
		if err != nil {
			return fmt.Errorf("open window: %w", err)
		}
		e.window = w
		e.ownsWindow = true
		source = w
	default:
		source = e.window
	}

	devOpts := []device.DeviceBuilderOption{
		device.WithSize(e.cfg.Window.Width, e.cfg.Window.Height),
		device.WithVSync(e.cfg.Window.VSync),
		device.WithFullscreen(e.cfg.Window.Fullscreen),
		device.WithDepthRange(e.cfg.Render.Near, e.cfg.Render.Far),
		device.WithMSAA(backend.MSAASampleCount(e.cfg.Render.MSAA)),
	}
	if e.backend != nil {
		devOpts = append(devOpts, device.WithBackend(e.backend))
	}
	dev, err := device.NewDevice(source, devOpts...)
	if err != nil {
		return err
	}
	e.dev = dev
	e.fullscreen = e.cfg.Window.Fullscreen

	e.cam = camera.NewCamera(camera.WithPosition(0, 1, -6))
	e.light = light.NewLight()

	orchOpts := []frame.OrchestratorBuilderOption{
		frame.WithClearColor(e.cfg.ClearColor()),
		frame.WithToneMap(e.cfg.ToneMapValues()),
		frame.WithScene(e.cfg.SceneID()),
		frame.WithStrictShaders(e.cfg.Render.StrictShaders),
	}
	if data, ok := environmentData(e.cfg.Textures.Environment, e.cfg.Textures.MaxSize); ok {
		orchOpts = append(orchOpts, frame.WithEnvironment(data))
	}
	if e.uiHook != nil {
		orchOpts = append(orchOpts, frame.WithUIHook(e.uiHook))
	}
	orch, err := frame.NewOrchestrator(dev, e.cam, e.light, orchOpts...)
	if err != nil {
		return err
	}
	e.orch = orch

	if err := loadScenes(orch, dev.Backend(), e.sceneLoader); err != nil {
		logging.LogWarn("continuing with empty scenes: %v", err)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.handleResize)
		e.window.SetKeyDownCallback(e.handleKey)
	}

	if e.watchPath != "" {
		w, err := config.NewWatcher(e.watchPath, e.applyConfig)
		if err != nil {
			logging.LogWarn("config hot reload disabled: %v", err)
		} else {
			e.watcher = w
		}
	}

	logging.With("gpu", dev.GPUName(), "headless", e.headless).Info("engine ready", "scene", orch.Scene())
	return nil
}

// handleResize forwards a framebuffer resize to the orchestrator, which applies it at the next frame.
func (e *engine) handleResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.orch.Resize(uint32(width), uint32(height))
}

// handleKey selects a scene with the number keys and toggles fullscreen with F11.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case window.Key1, window.Key2, window.Key3:
		id := e.orch.SelectScene(int(keyCode - window.Key1))
		logging.LogInfo("scene %s selected", id)
	case window.KeyF11:
		e.toggleFullscreen()
	}
}

func (e *engine) toggleFullscreen() {
	if e.window == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	enabled := !e.fullscreen
	sc := e.dev.Swapchain()
	mode, _ := device.NegotiateDisplayMode(e.window.DisplayModes(), sc.Width, sc.Height)
	if err := e.window.SetFullscreen(enabled, mode); err != nil {
		logging.LogWarn("fullscreen toggle failed: %v", err)
		return
	}
	e.fullscreen = enabled
}

// applyConfig pushes a reloaded configuration into the running orchestrator. Window, device
// and MSAA settings need a restart and are only logged.
func (e *engine) applyConfig(cfg config.Config) {
	e.mu.Lock()
	prev := e.cfg
	e.cfg = cfg
	e.mu.Unlock()

	cfg.Apply(e.orch)
	if cfg.Window != prev.Window || cfg.Render.MSAA != prev.Render.MSAA ||
		cfg.Render.Near != prev.Render.Near || cfg.Render.Far != prev.Render.Far {
		logging.LogWarn("window and device settings change on restart")
	}
	logging.LogInfo("config reloaded, scene %s", e.orch.Scene())
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() device.Device {
	return e.dev
}

func (e *engine) Orchestrator() frame.Orchestrator {
	return e.orch
}

func (e *engine) Camera() camera.Camera {
	return e.cam
}

func (e *engine) Light() light.Light {
	return e.light
}

func (e *engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *engine) Run() error {
	if e.window == nil {
		return e.runHeadless()
	}

	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
		default:
		}
	})
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	return nil
}

// runHeadless renders the configured number of frames back to back with a fixed delta.
// The tick callback runs once before every frame.
func (e *engine) runHeadless() error {
	if e.frames <= 0 {
		return ErrNoFrames
	}
	dt := HeadlessFrameTime
	if e.renderFrameLimit > 0 {
		dt = e.renderFrameLimit
	}
	seconds := float32(dt.Seconds())

	e.wg.Add(1)
	defer e.wg.Done()
	e.setRunning(true)
	defer e.setRunning(false)

	for i := 0; i < e.frames; i++ {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}
		if e.tickCallback != nil {
			e.tickCallback(seconds)
		}
		if err := e.orch.Frame(dt); err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		if e.renderCallback != nil {
			e.renderCallback(seconds)
		}
	}
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.setRunning(false)
		close(e.quitChannel)
	})
}

func (e *engine) setRunning(running bool) {
	e.mu.Lock()
	e.running = running
	e.mu.Unlock()
}

func (e *engine) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.setRunning(true)
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Frame errors are logged and the next iteration tries again; a failed backbuffer acquire
// or a failed resize recovers on its own.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			delta := now.Sub(lastRender)
			lastRender = now

			if err := e.orch.Frame(delta); err != nil {
				logging.LogWarn("frame skipped: %v", err)
			} else if e.renderCallback != nil {
				e.renderCallback(float32(delta.Seconds()))
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.isRunning() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Release() {
	e.releaseOnce.Do(func() {
		e.signalQuit()
		e.wg.Wait()
		if e.watcher != nil {
			if err := e.watcher.Close(); err != nil {
				logging.LogWarn("config watcher close: %v", err)
			}
		}
		if e.orch != nil {
			e.orch.Release()
		}
		if e.dev != nil {
			e.dev.Release()
		}
		if e.ownsWindow && e.window != nil {
			if err := e.window.Close(); err != nil {
				logging.LogWarn("window close: %v", err)
			}
		}
	})
}
