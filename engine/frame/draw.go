package frame

import (
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/mesh"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

// drawKey identifies one sub-mesh of one mesh.
type drawKey struct {
	mesh  mesh.DrawableMesh
	index int
}

// drawSlot is the per-draw state of a sub-mesh: its own object uniform buffer and the bind
// group pairing it with the sub-mesh textures. Queue writes land before the frame is submitted,
// so every draw needs its own buffer.
type drawSlot struct {
	buffer    backend.Buffer
	bindGroup backend.BindGroup
}

func (s *drawSlot) release() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
	}
	if s.buffer != nil {
		s.buffer.Release()
	}
}

// newDrawSlot creates the object buffer and the object bind group of a sub-mesh for the given
// program. Slots without a texture are bound to fallback.
func newDrawSlot(be backend.RendererBackend, variants pipeline.Variants, label string, sub mesh.SubMesh,
	sampler backend.Sampler, fallback backend.TextureView) (*drawSlot, error) {
	program := variants.Program()
	size, ok := program.UniformSize(shader.GroupObject, shader.BindingObject)
	if !ok {
		return nil, fmt.Errorf("%s: program %s has no object uniform", label, program.Name())
	}

	buf, err := be.CreateBuffer(backend.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: backend.BufferUsageUniform,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create object buffer: %w", label, err)
	}

	entries := []backend.BindGroupEntry{
		{Binding: shader.BindingObject, Buffer: buf},
		{Binding: shader.BindingSampler, Sampler: sampler},
	}
	for i := range program.TextureSlots() {
		view := fallback
		if i < mesh.SlotCount && sub.Textures[i] != nil {
			view = sub.Textures[i]
		}
		entries = append(entries, backend.BindGroupEntry{Binding: shader.BindingFirstTexture + uint32(i), TextureView: view})
	}

	bg, err := be.CreateBindGroup(backend.BindGroupDescriptor{
		Label:   label,
		Layout:  variants.Layout(),
		Group:   shader.GroupObject,
		Entries: entries,
	})
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("%s: create object bind group: %w", label, err)
	}
	return &drawSlot{buffer: buf, bindGroup: bg}, nil
}

// objectUniform builds the per-draw block of a sub-mesh.
func objectUniform(world [16]float32, sub mesh.SubMesh) mesh.GPUObjectUniform {
	return mesh.GPUObjectUniform{
		World:   world,
		Present: sub.Present(),
	}
}
