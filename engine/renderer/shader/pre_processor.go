// pre_processor.go implements the lumen WGSL pre-processor. It replaces @lumen:
// annotations with injected struct source or generated uniform declarations and
// collects the declarations so the program can size its uniform bindings.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/mesh"
)

// registryEntry pairs a WGSL struct source (embedded from a .wgsl asset file) with the
// WGSL type name and the byte size of the matching Go GPU type.
type registryEntry struct {
	Source string
	Type   string
	Size   uint64
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates group annotations during a Process call.
	declarations []Annotation
}

// PreProcessor expands @lumen: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces include annotations with the registered struct source and group
	// annotations with @group/@binding declarations. Each struct is injected at most once.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the most recent Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations with their struct sizes filled in
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every GPU struct type registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	var (
		cam  camera.GPUCameraUniform
		lit  light.GPULight
		obj  mesh.GPUObjectUniform
		tone GPUToneMapParams
	)
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:  {Source: camera.GPUCameraUniformSource, Type: "CameraUniform", Size: uint64(cam.Size())},
			AnnotationArgLight:   {Source: light.GPULightSource, Type: "Light", Size: uint64(lit.Size())},
			AnnotationArgObject:  {Source: mesh.GPUObjectUniformSource, Type: "ObjectUniform", Size: uint64(obj.Size())},
			AnnotationArgToneMap: {Source: GPUToneMapParamsSource, Type: "ToneMapParams", Size: uint64(tone.Size())},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgUniform: "var<uniform>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @lumen:include argument %q", i+1, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			entry, ok := p.structRegistry[a.Args[1]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @lumen:group struct %q", i+1, a.Args[1])
			}
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			a.Size = entry.Size
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", a.Group, a.Binding, addrSpace, a.Args[2], entry.Type))
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	out := make([]Annotation, len(p.declarations))
	copy(out, p.declarations)
	return out
}
