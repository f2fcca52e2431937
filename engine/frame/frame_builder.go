package frame

import (
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/passstate"
)

// DefaultClearColor is the HDR clear colour behind the environment.
var DefaultClearColor = common.Color{R: 0.3, G: 0.3, B: 0.3, A: 0.1}

// OrchestratorBuilderOption is a functional option for NewOrchestrator.
type OrchestratorBuilderOption func(*orchestratorImpl)

// WithClearColor sets the HDR clear colour.
//
// Parameters:
//   - c: the clear colour
//
// Returns:
//   - OrchestratorBuilderOption: option function to apply
func WithClearColor(c common.Color) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.clearColor = c
	}
}

// WithToneMap sets the initial tone-map inputs.
//
// Parameters:
//   - t: the tone-map inputs, sanitized each frame
//
// Returns:
//   - OrchestratorBuilderOption: option function to apply
func WithToneMap(t ToneMap) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.toneMapVals = t
	}
}

// WithScene sets the initially selected scene.
func WithScene(id SceneID) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.scene = SceneFromIndex(int(id))
	}
}

// WithUIHook installs the UI overlay hook.
func WithUIHook(hook UIHook) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.uiHook = hook
	}
}

// WithRecorder captures every cull and depth toggle of the frame passes.
//
// Parameters:
//   - r: the recorder to append to
//
// Returns:
//   - OrchestratorBuilderOption: option function to apply
func WithRecorder(r *passstate.Recorder) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.recorder = r
	}
}

// WithEnvironment replaces the procedural sky with decoded pixels. RGBA8 and RGBA16Float
// (8 bytes per pixel) data are accepted.
//
// Parameters:
//   - data: the equirectangular panorama
//
// Returns:
//   - OrchestratorBuilderOption: option function to apply
func WithEnvironment(data common.TextureStagingData) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.environment = data
	}
}

// WithStrictShaders turns shader validation warnings into construction errors.
func WithStrictShaders(strict bool) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.strictShaders = strict
	}
}

// WithFPSHistory sets how many per-frame FPS samples are kept.
func WithFPSHistory(n int) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		if n > 0 {
			o.historySize = n
		}
	}
}
