// Package mesh holds GPU-resident drawable meshes: one interleaved vertex buffer, one
// index buffer and the ordered sub-ranges that are drawn with their own textures.
package mesh

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
)

// SlotCount is the number of texture slots a sub-mesh can bind.
const SlotCount = 6

// TextureSlot names one of the six optional textures of a sub-mesh.
type TextureSlot int

const (
	SlotDiffuse TextureSlot = iota
	SlotNormal
	SlotSpecular
	SlotAO
	SlotEmissive
	SlotMetalRoughness
)

// Slots lists every texture slot in binding order.
var Slots = [SlotCount]TextureSlot{SlotDiffuse, SlotNormal, SlotSpecular, SlotAO, SlotEmissive, SlotMetalRoughness}

func (s TextureSlot) String() string {
	switch s {
	case SlotDiffuse:
		return "diffuse"
	case SlotNormal:
		return "normal"
	case SlotSpecular:
		return "specular"
	case SlotAO:
		return "ao"
	case SlotEmissive:
		return "emissive"
	case SlotMetalRoughness:
		return "metal-roughness"
	}
	return fmt.Sprintf("TextureSlot(%d)", int(s))
}

var (
	// ErrEmptyMesh is returned when a mesh has no vertices or no indices.
	ErrEmptyMesh = errors.New("mesh has no vertices or indices")
	// ErrSubMeshRange is returned when a sub-mesh reaches past the index buffer.
	ErrSubMeshRange = errors.New("sub-mesh range exceeds index count")
	// ErrIndexRange is returned when an index references a missing vertex.
	ErrIndexRange = errors.New("index references a vertex out of range")
)

// SubMesh is a contiguous index range drawn with its own textures.
// A nil entry in Textures means the slot is absent.
type SubMesh struct {
	StartIndex uint32
	IndexCount uint32
	Textures   [SlotCount]backend.TextureView
}

// Present returns the presence flags of the texture slots in TextureSlot order.
func (s SubMesh) Present() [SlotCount]float32 {
	var out [SlotCount]float32
	for i, tex := range s.Textures {
		if tex != nil {
			out[i] = 1
		}
	}
	return out
}

// MeshData is the CPU-side geometry handed over by a loader or a procedural builder.
type MeshData struct {
	Vertices []GPUVertex
	Indices  []uint32
}

type meshImpl struct {
	mu *sync.Mutex

	name         string
	vertexBuffer backend.Buffer
	indexBuffer  backend.Buffer
	vertexCount  uint32
	indexCount   uint32
	subMeshes    []SubMesh

	position [3]float32
	rotation [3]float32
	scale    [3]float32
	world    [16]float32

	released bool
}

// DrawableMesh is an immutable GPU mesh. Only its transform can change after creation.
type DrawableMesh interface {
	// Name returns the debug name of the mesh.
	Name() string

	// VertexBuffer returns the interleaved vertex buffer (see VertexLayout).
	VertexBuffer() backend.Buffer

	// IndexBuffer returns the 32-bit index buffer.
	IndexBuffer() backend.Buffer

	VertexCount() uint32
	IndexCount() uint32

	// SubMeshes returns the sub-ranges in draw order.
	//
	// Returns:
	//   - []SubMesh: a copy of the sub-mesh list
	SubMeshes() []SubMesh

	// World returns the world matrix built from position, rotation (radians) and scale.
	//
	// Returns:
	//   - [16]float32: the column-major world matrix
	World() [16]float32

	// SetTransform replaces the mesh transform.
	//
	// Parameters:
	//   - position: world-space translation
	//   - rotation: euler rotation in radians
	//   - scale: per-axis scale
	SetTransform(position, rotation, scale [3]float32)

	// Release destroys the vertex and index buffers. Textures referenced by sub-meshes are not owned by the mesh.
	Release()
}

var _ DrawableMesh = &meshImpl{}

// NewDrawableMesh validates data and uploads it into a vertex and an index buffer.
// Without WithSubMeshes the mesh gets a single untextured sub-mesh spanning every index.
//
// Parameters:
//   - be: the backend that allocates the buffers
//   - data: vertices and indices
//   - options: functional options to configure the mesh
//
// Returns:
//   - DrawableMesh: the uploaded mesh
//   - error: error if validation or any allocation fails; nothing is leaked on failure
func NewDrawableMesh(be backend.RendererBackend, data MeshData, options ...MeshBuilderOption) (DrawableMesh, error) {
	m := &meshImpl{
		mu:    &sync.Mutex{},
		name:  "mesh",
		scale: [3]float32{1, 1, 1},
	}
	for _, option := range options {
		option(m)
	}

	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("%s: %w", m.name, ErrEmptyMesh)
	}
	for _, idx := range data.Indices {
		if int(idx) >= len(data.Vertices) {
			return nil, fmt.Errorf("%s: index %d of %d vertices: %w", m.name, idx, len(data.Vertices), ErrIndexRange)
		}
	}
	m.vertexCount = uint32(len(data.Vertices))
	m.indexCount = uint32(len(data.Indices))

	if len(m.subMeshes) == 0 {
		m.subMeshes = []SubMesh{{StartIndex: 0, IndexCount: m.indexCount}}
	}
	for i, sm := range m.subMeshes {
		if uint64(sm.StartIndex)+uint64(sm.IndexCount) > uint64(m.indexCount) {
			return nil, fmt.Errorf("%s: sub-mesh %d [%d, +%d) of %d indices: %w",
				m.name, i, sm.StartIndex, sm.IndexCount, m.indexCount, ErrSubMeshRange)
		}
	}

	vertexBytes := MarshalVertices(data.Vertices)
	vb, err := be.CreateBuffer(backend.BufferDescriptor{
		Label: m.name + "-vertices",
		Size:  uint64(len(vertexBytes)),
		Usage: backend.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create vertex buffer: %w", m.name, err)
	}
	if err := be.WriteBuffer(vb, 0, vertexBytes); err != nil {
		vb.Release()
		return nil, fmt.Errorf("%s: failed to upload vertices: %w", m.name, err)
	}

	indexBytes := MarshalIndices(data.Indices)
	ib, err := be.CreateBuffer(backend.BufferDescriptor{
		Label: m.name + "-indices",
		Size:  uint64(len(indexBytes)),
		Usage: backend.BufferUsageIndex,
	})
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("%s: failed to create index buffer: %w", m.name, err)
	}
	if err := be.WriteBuffer(ib, 0, indexBytes); err != nil {
		vb.Release()
		ib.Release()
		return nil, fmt.Errorf("%s: failed to upload indices: %w", m.name, err)
	}

	m.vertexBuffer = vb
	m.indexBuffer = ib
	m.updateWorld()
	return m, nil
}

func (m *meshImpl) Name() string {
	return m.name
}

func (m *meshImpl) VertexBuffer() backend.Buffer {
	return m.vertexBuffer
}

func (m *meshImpl) IndexBuffer() backend.Buffer {
	return m.indexBuffer
}

func (m *meshImpl) VertexCount() uint32 {
	return m.vertexCount
}

func (m *meshImpl) IndexCount() uint32 {
	return m.indexCount
}

func (m *meshImpl) SubMeshes() []SubMesh {
	out := make([]SubMesh, len(m.subMeshes))
	copy(out, m.subMeshes)
	return out
}

func (m *meshImpl) World() [16]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world
}

func (m *meshImpl) SetTransform(position, rotation, scale [3]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = position
	m.rotation = rotation
	m.scale = scale
	m.updateWorld()
}

func (m *meshImpl) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	m.vertexBuffer.Release()
	m.indexBuffer.Release()
}

// updateWorld rebuilds the world matrix. Caller must hold the mutex or own m exclusively.
func (m *meshImpl) updateWorld() {
	common.BuildModelMatrix(m.world[:],
		m.position[0], m.position[1], m.position[2],
		m.rotation[0], m.rotation[1], m.rotation[2],
		m.scale[0], m.scale[1], m.scale[2])
}
