package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLooksDownPositiveZ(t *testing.T) {
	c := NewCamera()
	f := c.Forward()

	assert.InDelta(t, 0.0, f[0], 1e-6)
	assert.InDelta(t, 0.0, f[1], 1e-6)
	assert.InDelta(t, 1.0, f[2], 1e-6)

	r := c.Right()
	assert.InDelta(t, 1.0, r[0], 1e-6)
}

func TestPitchIsClamped(t *testing.T) {
	c := NewCamera(WithRotation(math32.Pi, 0))
	pitch, _ := c.Rotation()
	assert.InDelta(t, MaxPitch, pitch, 1e-6)

	c.SetRotation(-math32.Pi, 0)
	pitch, _ = c.Rotation()
	assert.InDelta(t, -MaxPitch, pitch, 1e-6)
}

func TestViewMatrixMovesEyeToOrigin(t *testing.T) {
	c := NewCamera(WithPosition(1, 2, -10))
	v := c.ViewMatrix()

	// Column-major: translation lives in elements 12..14.
	x := v[0]*1 + v[4]*2 + v[8]*-10 + v[12]
	y := v[1]*1 + v[5]*2 + v[9]*-10 + v[13]
	z := v[2]*1 + v[6]*2 + v[10]*-10 + v[14]
	assert.InDelta(t, 0.0, x, 1e-5)
	assert.InDelta(t, 0.0, y, 1e-5)
	assert.InDelta(t, 0.0, z, 1e-5)
}

func TestUniformMarshal(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, -5))
	var proj [16]float32
	proj[0] = 3

	u := c.Uniform(proj)
	assert.Equal(t, 144, u.Size())
	assert.Equal(t, [3]float32{0, 0, -5}, u.Position)

	buf := u.Marshal()
	assert.Len(t, buf, 144)
	assert.Equal(t, []byte{0, 0, 0x40, 0x40}, buf[64:68], "projection[0] = 3.0")
}
