package mesh

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
)

// GPUVertex is the GPU-aligned representation of a single interleaved mesh vertex.
// Size: 56 bytes, no padding. See VertexLayout for the attribute locations.
type GPUVertex struct {
	Position  [3]float32 // offset  0: model-space position (location 0)
	TexCoord  [2]float32 // offset 12: UV coordinate (location 1)
	Normal    [3]float32 // offset 20: vertex normal (location 2)
	Tangent   [3]float32 // offset 32: tangent, +U direction (location 3)
	Bitangent [3]float32 // offset 44: bitangent, +V direction (location 4)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (56)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 56-byte buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 56)
	g.put(buf)
	return buf
}

func (g *GPUVertex) put(buf []byte) {
	fields := [14]float32{
		g.Position[0], g.Position[1], g.Position[2],
		g.TexCoord[0], g.TexCoord[1],
		g.Normal[0], g.Normal[1], g.Normal[2],
		g.Tangent[0], g.Tangent[1], g.Tangent[2],
		g.Bitangent[0], g.Bitangent[1], g.Bitangent[2],
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

// VertexStride is the byte stride of GPUVertex in the vertex buffer.
const VertexStride = 56

// VertexLayout returns the interleaved vertex buffer layout shared by every mesh program.
//
// Returns:
//   - backend.VertexLayout: position, uv, normal, tangent and bitangent at locations 0..4
func VertexLayout() backend.VertexLayout {
	return backend.VertexLayout{
		ArrayStride: VertexStride,
		Attributes: []backend.VertexAttribute{
			{Format: backend.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: backend.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			{Format: backend.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
			{Format: backend.VertexFormatFloat32x3, Offset: 32, ShaderLocation: 3},
			{Format: backend.VertexFormatFloat32x3, Offset: 44, ShaderLocation: 4},
		},
	}
}

// MarshalVertices packs vertices back to back for upload.
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, len(vertices)*VertexStride)
	for i := range vertices {
		vertices[i].put(buf[i*VertexStride:])
	}
	return buf
}

// MarshalIndices packs 32-bit indices for upload.
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// GPUObjectUniformSource is the canonical WGSL definition of the ObjectUniform struct.
// Matches GPUObjectUniform layout exactly (96 bytes).
//
//go:embed assets/object_uniform.wgsl
var GPUObjectUniformSource string

// GPUObjectUniform is the per-draw block of one sub-mesh: its world matrix and which
// texture slots hold a real texture (1) or the fallback (0).
// Size: 96 bytes.
type GPUObjectUniform struct {
	World   [16]float32            // offset  0: world matrix (mat4x4<f32>)
	Present [SlotCount]float32     // offset 64: presence flags in TextureSlot order (present_a, present_b.xy)
	_pad    [8 - SlotCount]float32 // offset 88: padding to 96 bytes
}

// Size returns the size of the GPUObjectUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUObjectUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUObjectUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPUObjectUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.World[i]))
	}
	for i := range SlotCount {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Present[i]))
	}
	return buf
}
