package light

import (
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	ambient       common.Color
	diffuse       common.Color
	specular      common.Color
	specularPower float32
	direction     [3]float32
}

// Light is the scene's single directional light.
//
// The lighting program evaluates ambient + diffuse (N·L) + specular (Phong reflection
// raised to SpecularPower) from these terms. The light has no position and no attenuation.
type Light interface {
	// Ambient returns the ambient colour added to every lit fragment.
	//
	// Returns:
	//   - common.Color: the ambient colour
	Ambient() common.Color

	// Diffuse returns the diffuse colour scaled by N·L.
	//
	// Returns:
	//   - common.Color: the diffuse colour
	Diffuse() common.Color

	// Specular returns the specular highlight colour.
	//
	// Returns:
	//   - common.Color: the specular colour
	Specular() common.Color

	// SpecularPower returns the specular exponent.
	//
	// Returns:
	//   - float32: the exponent, always >= 1
	SpecularPower() float32

	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - [3]float32: direction as (x, y, z)
	Direction() [3]float32

	// SetAmbient sets the ambient colour.
	SetAmbient(c common.Color)

	// SetDiffuse sets the diffuse colour.
	SetDiffuse(c common.Color)

	// SetSpecular sets the specular colour and exponent. Exponents below 1 are raised to 1.
	//
	// Parameters:
	//   - c: the specular colour
	//   - power: the specular exponent
	SetSpecular(c common.Color, power float32)

	// SetDirection sets the direction of the light and normalizes it.
	// A zero vector is ignored.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// GPU packs the light into its uniform layout.
	//
	// Returns:
	//   - GPULight: the uniform block
	GPU() GPULight
}

var _ Light = &lightImpl{}

// NewLight creates a white directional light pointing down +Z.
//
// Parameters:
//   - options: functional options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(options ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:            &sync.Mutex{},
		ambient:       common.Color{R: 0.15, G: 0.15, B: 0.15, A: 1},
		diffuse:       common.Color{R: 1, G: 1, B: 1, A: 1},
		specular:      common.Color{R: 1, G: 1, B: 1, A: 1},
		specularPower: 32,
		direction:     [3]float32{0, 0, 1},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *lightImpl) Ambient() common.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ambient
}

func (l *lightImpl) Diffuse() common.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.diffuse
}

func (l *lightImpl) Specular() common.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.specular
}

func (l *lightImpl) SpecularPower() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.specularPower
}

func (l *lightImpl) Direction() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) SetAmbient(c common.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ambient = c
}

func (l *lightImpl) SetDiffuse(c common.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.diffuse = c
}

func (l *lightImpl) SetSpecular(c common.Color, power float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.specular = c
	l.specularPower = max(power, 1)
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if x == 0 && y == 0 && z == 0 {
		return
	}
	l.direction = common.Normalize3([3]float32{x, y, z})
}

func (l *lightImpl) GPU() GPULight {
	l.mu.Lock()
	defer l.mu.Unlock()
	return GPULight{
		Ambient:       l.ambient.Array(),
		Diffuse:       l.diffuse.Array(),
		Specular:      [3]float32{l.specular.R, l.specular.G, l.specular.B},
		SpecularPower: l.specularPower,
		Direction:     l.direction,
	}
}
