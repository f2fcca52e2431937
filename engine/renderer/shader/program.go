// Package shader builds named GPU programs: pre-processed WGSL, entry points, vertex
// layout and bind group layout. Programs are immutable once created.
package shader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
)

// ErrLayoutMismatch is returned when an annotated uniform has no matching uniform entry in the bind group layout.
var ErrLayoutMismatch = errors.New("bind group layout does not match shader declarations")

// programImpl is the implementation of the Program interface.
type programImpl struct {
	name          string
	source        string
	vertexEntry   string
	fragmentEntry string
	vertexLayouts []backend.VertexLayout
	bindGroups    [][]backend.BindingLayout
	textureSlots  int
	topology      backend.Topology
	strict        bool

	declarations []Annotation
	warnings     []string
}

// Program is a validated WGSL program together with everything a pipeline needs to use it.
type Program interface {
	// Name returns the program name used in pipeline and bind group labels.
	Name() string

	// Source returns the processed WGSL source.
	Source() string

	VertexEntry() string
	FragmentEntry() string

	// VertexLayouts returns the vertex buffer layouts, empty for programs that generate vertices.
	VertexLayouts() []backend.VertexLayout

	// Layout returns the bind group layouts, indexed by group, with uniform sizes resolved.
	//
	// Returns:
	//   - backend.PipelineLayoutDescriptor: the layout labelled with the program name
	Layout() backend.PipelineLayoutDescriptor

	// TextureSlots returns the number of texture bindings the program samples.
	TextureSlots() int

	// Topology returns the primitive topology the program is drawn with.
	Topology() backend.Topology

	// UniformSize returns the byte size of the uniform declared at group/binding.
	//
	// Parameters:
	//   - group: bind group index
	//   - binding: binding index within the group
	//
	// Returns:
	//   - uint64: the declared struct size
	//   - bool: false if no uniform is declared there
	UniformSize(group, binding uint32) (uint64, bool)

	// Declarations returns the uniform declarations found in the source.
	Declarations() []Annotation

	// Warnings returns validator issues that were tolerated at construction.
	Warnings() []string
}

var _ Program = &programImpl{}

// NewProgram pre-processes and validates source and checks every annotated uniform against
// the bind group layout. Any failure is fatal for the program.
//
// Parameters:
//   - name: program name
//   - source: WGSL source with @lumen: annotations
//   - options: functional options to configure the program
//
// Returns:
//   - Program: the validated program
//   - error: error describing why the program cannot be used
func NewProgram(name, source string, options ...ProgramBuilderOption) (Program, error) {
	p := &programImpl{
		name:          name,
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
		topology:      backend.TopologyTriangleList,
	}
	for _, option := range options {
		option(p)
	}

	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	p.source = processed
	p.declarations = pp.Declarations()

	if err := p.resolveUniforms(); err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}

	warnings, err := validateWGSL(processed, p.vertexEntry, p.fragmentEntry, p.strict)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	p.warnings = warnings
	for _, w := range warnings {
		logging.LogWarn("shader %s: validation issue: %s", name, w)
	}
	return p, nil
}

func (p *programImpl) Name() string {
	return p.name
}

func (p *programImpl) Source() string {
	return p.source
}

func (p *programImpl) VertexEntry() string {
	return p.vertexEntry
}

func (p *programImpl) FragmentEntry() string {
	return p.fragmentEntry
}

func (p *programImpl) VertexLayouts() []backend.VertexLayout {
	return p.vertexLayouts
}

func (p *programImpl) Layout() backend.PipelineLayoutDescriptor {
	groups := make([][]backend.BindingLayout, len(p.bindGroups))
	for i, g := range p.bindGroups {
		groups[i] = append([]backend.BindingLayout(nil), g...)
	}
	return backend.PipelineLayoutDescriptor{Label: p.name, BindGroups: groups}
}

func (p *programImpl) TextureSlots() int {
	return p.textureSlots
}

func (p *programImpl) Topology() backend.Topology {
	return p.topology
}

func (p *programImpl) UniformSize(group, binding uint32) (uint64, bool) {
	for _, d := range p.declarations {
		if d.Group == group && d.Binding == binding {
			return d.Size, true
		}
	}
	return 0, false
}

func (p *programImpl) Declarations() []Annotation {
	return p.declarations
}

func (p *programImpl) Warnings() []string {
	return p.warnings
}

// resolveUniforms fills the MinSize of every uniform entry from its declaration and fails
// when a declaration has no uniform entry or a hand-set size disagrees.
func (p *programImpl) resolveUniforms() error {
	for _, d := range p.declarations {
		if int(d.Group) >= len(p.bindGroups) {
			return fmt.Errorf("%w: line %d declares group %d, layout has %d groups", ErrLayoutMismatch, d.Line, d.Group, len(p.bindGroups))
		}
		found := false
		for i := range p.bindGroups[d.Group] {
			entry := &p.bindGroups[d.Group][i]
			if entry.Binding != d.Binding {
				continue
			}
			if entry.Type != backend.BindingTypeUniform {
				return fmt.Errorf("%w: group %d binding %d is declared uniform", ErrLayoutMismatch, d.Group, d.Binding)
			}
			if entry.MinSize != 0 && entry.MinSize != d.Size {
				return fmt.Errorf("%w: group %d binding %d size %d, struct is %d bytes", ErrLayoutMismatch, d.Group, d.Binding, entry.MinSize, d.Size)
			}
			entry.MinSize = d.Size
			found = true
		}
		if !found {
			return fmt.Errorf("%w: group %d binding %d missing from layout", ErrLayoutMismatch, d.Group, d.Binding)
		}
	}
	return nil
}
