package texture

import (
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/chewxy/math32"
)

// EnvironmentKey is the cache key of the procedural sky.
const EnvironmentKey = "lumen:environment"

// Gradient is the colour ramp of the procedural sky. Values are linear and may exceed 1.
type Gradient struct {
	Zenith  common.Color
	Horizon common.Color
	Ground  common.Color
}

// DefaultGradient is a clear day sky with a bright horizon.
var DefaultGradient = Gradient{
	Zenith:  common.Color{R: 0.15, G: 0.3, B: 0.75, A: 1},
	Horizon: common.Color{R: 1.4, G: 1.3, B: 1.2, A: 1},
	Ground:  common.Color{R: 0.2, G: 0.18, B: 0.16, A: 1},
}

// Environment builds an equirectangular RGBA16Float sky: row 0 is straight up, the middle
// row is the horizon, the last row is straight down. The ramp eases towards the horizon.
//
// Parameters:
//   - width: texture width, raised to 1
//   - height: texture height, raised to 2
//   - g: the colour ramp
//
// Returns:
//   - common.TextureStagingData: half-float pixels with 8 bytes per texel
func Environment(width, height int, g Gradient) common.TextureStagingData {
	width = max(width, 1)
	height = max(height, 2)

	values := make([]float32, 0, width*height*4)
	for y := range height {
		// +1 at the zenith, -1 at the nadir.
		elevation := 1 - 2*(float32(y)+0.5)/float32(height)
		var c common.Color
		if elevation >= 0 {
			c = lerp(g.Horizon, g.Zenith, math32.Sqrt(elevation))
		} else {
			c = lerp(g.Horizon, g.Ground, math32.Sqrt(-elevation))
		}
		for range width {
			values = append(values, c.R, c.G, c.B, 1)
		}
	}
	return common.TextureStagingData{
		Pixels:        common.Float16Slice(values),
		Width:         uint32(width),
		Height:        uint32(height),
		BytesPerPixel: 8,
	}
}

func lerp(a, b common.Color, t float32) common.Color {
	return common.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}
