package light

import "github.com/Carmen-Shannon/lumen/common"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing, a zero vector is ignored.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		if x == 0 && y == 0 && z == 0 {
			return
		}
		l.direction = common.Normalize3([3]float32{x, y, z})
	}
}

// WithAmbient is an option builder that sets the ambient colour.
//
// Parameters:
//   - c: the ambient colour
//
// Returns:
//   - LightBuilderOption: a function that applies the ambient option to a lightImpl
func WithAmbient(c common.Color) LightBuilderOption {
	return func(l *lightImpl) {
		l.ambient = c
	}
}

// WithDiffuse is an option builder that sets the diffuse colour.
//
// Parameters:
//   - c: the diffuse colour
//
// Returns:
//   - LightBuilderOption: a function that applies the diffuse option to a lightImpl
func WithDiffuse(c common.Color) LightBuilderOption {
	return func(l *lightImpl) {
		l.diffuse = c
	}
}

// WithSpecular is an option builder that sets the specular colour and exponent.
//
// Parameters:
//   - c: the specular colour
//   - power: the specular exponent, raised to 1 if lower
//
// Returns:
//   - LightBuilderOption: a function that applies the specular option to a lightImpl
func WithSpecular(c common.Color, power float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.specular = c
		l.specularPower = max(power, 1)
	}
}
