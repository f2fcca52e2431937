package mesh

// MeshBuilderOption is a functional option for configuring a DrawableMesh via NewDrawableMesh.
type MeshBuilderOption func(*meshImpl)

// WithName is an option builder that sets the debug name, also used as the buffer label prefix.
//
// Parameters:
//   - name: the mesh name
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a meshImpl
func WithName(name string) MeshBuilderOption {
	return func(m *meshImpl) {
		m.name = name
	}
}

// WithSubMeshes is an option builder that sets the ordered sub-ranges and their textures.
//
// Parameters:
//   - subMeshes: the sub-meshes in draw order
//
// Returns:
//   - MeshBuilderOption: a function that applies the sub-mesh option to a meshImpl
func WithSubMeshes(subMeshes ...SubMesh) MeshBuilderOption {
	return func(m *meshImpl) {
		m.subMeshes = append([]SubMesh(nil), subMeshes...)
	}
}

// WithPosition is an option builder that sets the world-space translation.
func WithPosition(x, y, z float32) MeshBuilderOption {
	return func(m *meshImpl) {
		m.position = [3]float32{x, y, z}
	}
}

// WithRotation is an option builder that sets the euler rotation in radians.
func WithRotation(x, y, z float32) MeshBuilderOption {
	return func(m *meshImpl) {
		m.rotation = [3]float32{x, y, z}
	}
}

// WithScale is an option builder that sets the per-axis scale.
func WithScale(x, y, z float32) MeshBuilderOption {
	return func(m *meshImpl) {
		m.scale = [3]float32{x, y, z}
	}
}
