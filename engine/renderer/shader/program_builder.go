package shader

import "github.com/Carmen-Shannon/lumen/engine/renderer/backend"

// ProgramBuilderOption is a functional option for configuring a Program via NewProgram.
type ProgramBuilderOption func(*programImpl)

// WithEntryPoints overrides the default vs_main / fs_main entry points.
//
// Parameters:
//   - vertex: the @vertex function name
//   - fragment: the @fragment function name
//
// Returns:
//   - ProgramBuilderOption: a function that applies the entry point option to a programImpl
func WithEntryPoints(vertex, fragment string) ProgramBuilderOption {
	return func(p *programImpl) {
		p.vertexEntry = vertex
		p.fragmentEntry = fragment
	}
}

// WithVertexLayouts sets the vertex buffer layouts consumed by the vertex stage.
//
// Parameters:
//   - layouts: the vertex buffer layouts in slot order
//
// Returns:
//   - ProgramBuilderOption: a function that applies the vertex layout option to a programImpl
func WithVertexLayouts(layouts ...backend.VertexLayout) ProgramBuilderOption {
	return func(p *programImpl) {
		p.vertexLayouts = layouts
	}
}

// WithBindGroup sets the layout of one bind group. Uniform entries may leave MinSize at 0,
// it is filled from the matching @lumen:group declaration.
//
// Parameters:
//   - group: the bind group index
//   - entries: the binding layouts of the group
//
// Returns:
//   - ProgramBuilderOption: a function that applies the bind group option to a programImpl
func WithBindGroup(group uint32, entries ...backend.BindingLayout) ProgramBuilderOption {
	return func(p *programImpl) {
		for uint32(len(p.bindGroups)) <= group {
			p.bindGroups = append(p.bindGroups, nil)
		}
		p.bindGroups[group] = append([]backend.BindingLayout(nil), entries...)
	}
}

// WithTextureSlots records how many texture bindings the program samples.
//
// Parameters:
//   - n: the number of texture slots
//
// Returns:
//   - ProgramBuilderOption: a function that applies the texture slot option to a programImpl
func WithTextureSlots(n int) ProgramBuilderOption {
	return func(p *programImpl) {
		p.textureSlots = n
	}
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: list or strip
//
// Returns:
//   - ProgramBuilderOption: a function that applies the topology option to a programImpl
func WithTopology(topology backend.Topology) ProgramBuilderOption {
	return func(p *programImpl) {
		p.topology = topology
	}
}

// WithStrictValidation makes validator issues fatal instead of logged.
//
// Parameters:
//   - strict: true to fail on any validator issue
//
// Returns:
//   - ProgramBuilderOption: a function that applies the strict option to a programImpl
func WithStrictValidation(strict bool) ProgramBuilderOption {
	return func(p *programImpl) {
		p.strict = strict
	}
}
