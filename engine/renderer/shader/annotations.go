// annotations.go defines the annotation types, arguments and parser for the lumen WGSL
// pre-processor. Annotations are single-line WGSL comments prefixed with @lumen: that
// inject shared struct definitions and generate uniform binding declarations, so the
// Go-side uniform layouts and the WGSL structs come from one source.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies a lumen annotation within a WGSL comment line.
const annotationPrefix = "@lumen:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// at the annotation site. It produces no declaration.
	//
	// Syntax: // @lumen:include <struct_type>
	//
	// Example: // @lumen:include camera
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding uniform declaration and
	// records it so the program can check its bind group layout against the struct size.
	//
	// Syntax: // @lumen:group <group> <binding> <address_space> <struct_type> <var_name>
	//
	// Example: // @lumen:group 0 0 uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation represents a single parsed @lumen: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = struct type key
	//   - group:   [0] = address space, [1] = struct type key, [2] = var name
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group and Binding are set for group annotations only.
	Group   uint32
	Binding uint32

	// Size is the byte size of the declared struct, set for group annotations by the PreProcessor.
	Size uint64
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl asset file.
const (
	// AnnotationArgCamera identifies the CameraUniform struct.
	// Source: engine/camera/assets/camera_uniform.wgsl
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgLight identifies the directional Light struct.
	// Source: engine/light/assets/light.wgsl
	AnnotationArgLight AnnotationArg = "light"

	// AnnotationArgObject identifies the per-draw ObjectUniform struct.
	// Source: engine/mesh/assets/object_uniform.wgsl
	AnnotationArgObject AnnotationArg = "object"

	// AnnotationArgToneMap identifies the ToneMapParams struct.
	// Source: engine/renderer/shader/assets/tonemap_params.wgsl
	AnnotationArgToneMap AnnotationArg = "tonemap"
)

// annotationArgUniform maps to var<uniform> in WGSL. Parameter blocks are always uniforms.
const annotationArgUniform AnnotationArg = "uniform"

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgLight,
	AnnotationArgObject,
	AnnotationArgToneMap,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgUniform,
}

// parseAnnotation attempts to parse a single line of WGSL source as a @lumen: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @lumen annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @lumen include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @lumen include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @lumen group annotation requires exactly five arguments (group, binding, address space, struct type, var name)", lineNum)
		}
		group, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @lumen group annotation: %v", lineNum, args[1], err)
		}
		binding, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @lumen group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @lumen group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[4])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @lumen group annotation", lineNum, args[4])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   uint32(group),
			Binding: uint32(binding),
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @lumen annotation type %q", lineNum, args[0])
	}
}
