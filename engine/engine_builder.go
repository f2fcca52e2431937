package engine

import (
	"time"

	"github.com/Carmen-Shannon/lumen/engine/frame"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The caller keeps ownership and closes it.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithHeadless renders without a window. A nil backend gets a fresh headless backend.
//
// Parameters:
//   - be: the backend to render into, usually a HeadlessRendererBackend
//   - frames: how many frames Run renders before returning
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithHeadless(be backend.RendererBackend, frames int) EngineBuilderOption {
	return func(e *engine) {
		e.headless = true
		e.window = nil
		e.backend = be
		e.frames = frames
	}
}

// WithSceneLoader replaces the procedural demo scenes.
func WithSceneLoader(loader SceneLoader) EngineBuilderOption {
	return func(e *engine) {
		e.sceneLoader = loader
	}
}

// WithUIHook draws an overlay onto the swapchain after the tone map.
func WithUIHook(hook frame.UIHook) EngineBuilderOption {
	return func(e *engine) {
		e.uiHook = hook
	}
}

// WithConfigWatch reloads the file at path whenever it changes and applies the clear colour,
// tone map and scene of every valid version to the running engine.
//
// Parameters:
//   - path: the configuration file the engine was loaded from
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigWatch(path string) EngineBuilderOption {
	return func(e *engine) {
		e.watchPath = path
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default). Headless runs use the cap as their fixed frame delta.
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
