package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

var (
	// ErrInvalidSource is returned when WGSL source fails to parse or lower.
	ErrInvalidSource = errors.New("invalid WGSL source")
	// ErrMissingEntryPoint is returned when a required entry point is absent or has the wrong stage.
	ErrMissingEntryPoint = errors.New("missing entry point")
	// ErrValidation is returned in strict mode when the IR validator reports issues.
	ErrValidation = errors.New("WGSL validation failed")
)

// validateWGSL runs the source through the naga front end and checks that the vertex and
// fragment entry points exist with the right stages. Validator issues are returned as
// warnings, or as an ErrValidation error when strict is set.
//
// Parameters:
//   - source: processed WGSL source
//   - vertexEntry: required @vertex function name
//   - fragmentEntry: required @fragment function name
//   - strict: treat validator issues as errors
//
// Returns:
//   - []string: validator issues that were tolerated
//   - error: error if the source is unusable
func validateWGSL(source, vertexEntry, fragmentEntry string, strict bool) ([]string, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidSource, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: lower: %v", ErrInvalidSource, err)
	}

	if err := requireEntryPoint(module, vertexEntry, ir.StageVertex); err != nil {
		return nil, err
	}
	if err := requireEntryPoint(module, fragmentEntry, ir.StageFragment); err != nil {
		return nil, err
	}

	issues, err := naga.Validate(module)
	if err != nil {
		if strict {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return []string{err.Error()}, nil
	}
	warnings := make([]string, 0, len(issues))
	for _, issue := range issues {
		warnings = append(warnings, issue.Error())
	}
	if strict && len(issues) > 0 {
		return warnings, fmt.Errorf("%w: %s", ErrValidation, warnings[0])
	}
	return warnings, nil
}

func requireEntryPoint(module *ir.Module, name string, stage ir.ShaderStage) error {
	for _, ep := range module.EntryPoints {
		if ep.Name == name {
			if ep.Stage != stage {
				return fmt.Errorf("%w: %q has the wrong stage", ErrMissingEntryPoint, name)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrMissingEntryPoint, name)
}
