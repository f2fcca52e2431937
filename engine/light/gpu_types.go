package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (64 bytes).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of the directional light uniform.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 64 bytes.
type GPULight struct {
	Ambient       [4]float32 // offset  0: ambient colour
	Diffuse       [4]float32 // offset 16: diffuse colour
	Specular      [3]float32 // offset 32: specular colour (specular.rgb)
	SpecularPower float32    // offset 44: specular exponent (specular.w)
	Direction     [3]float32 // offset 48: normalized direction the light travels (direction.xyz)
	_pad          float32    // offset 60: padding to 64 bytes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Ambient[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Diffuse[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.Specular[i]))
		binary.LittleEndian.PutUint32(buf[48+i*4:], math.Float32bits(g.Direction[i]))
	}
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.SpecularPower))
	binary.LittleEndian.PutUint32(buf[60:64], 0) // _pad
	return buf
}
