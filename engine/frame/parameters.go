package frame

import (
	"math"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

// MinLuminance is the lower bound of the average and maximum luminance tone-map inputs.
const MinLuminance = 1e-4

// ToneMap holds the extended Reinhard operator inputs.
type ToneMap struct {
	Exposure         float32
	AverageLuminance float32
	MaxLuminance     float32
	Burn             float32
}

// DefaultToneMap returns exposure 1, average luminance 0.5, max luminance 1 and no burn.
func DefaultToneMap() ToneMap {
	return ToneMap{
		Exposure:         1,
		AverageLuminance: 0.5,
		MaxLuminance:     1,
		Burn:             0,
	}
}

// Sanitize returns t with every field finite and in range: exposure is non-negative, the
// luminances are at least MinLuminance and burn is within [0, 1]. Non-finite fields take the default.
//
// Returns:
//   - ToneMap: the clamped values
func (t ToneMap) Sanitize() ToneMap {
	def := DefaultToneMap()
	return ToneMap{
		Exposure:         common.SanitizeFloat(t.Exposure, 0, math.MaxFloat32, def.Exposure),
		AverageLuminance: common.SanitizeFloat(t.AverageLuminance, MinLuminance, math.MaxFloat32, def.AverageLuminance),
		MaxLuminance:     common.SanitizeFloat(t.MaxLuminance, MinLuminance, math.MaxFloat32, def.MaxLuminance),
		Burn:             common.SanitizeFloat(t.Burn, 0, 1, def.Burn),
	}
}

// GPU converts the sanitized values to the shader parameter block.
func (t ToneMap) GPU() shader.GPUToneMapParams {
	s := t.Sanitize()
	return shader.GPUToneMapParams{
		Exposure:         s.Exposure,
		AverageLuminance: s.AverageLuminance,
		MaxLuminance:     s.MaxLuminance,
		Burn:             s.Burn,
	}
}

// FrameParameters is everything the passes of one frame read. It is rebuilt at the top of every frame.
type FrameParameters struct {
	// Frame is the 1-based index of the frame.
	Frame uint64
	// Elapsed is the session time in seconds including this frame.
	Elapsed float32
	// Delta is the duration of the previous frame in seconds.
	Delta float32

	World      [16]float32
	View       [16]float32
	Projection [16]float32

	CameraPosition [3]float32
	Light          light.GPULight
	ToneMap        ToneMap

	Viewport common.Viewport
}
