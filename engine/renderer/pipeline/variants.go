package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/renderer/passstate"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

type variantsImpl struct {
	program   shader.Program
	layout    backend.PipelineLayout
	pipelines map[passstate.Key]Pipeline
}

// Variants holds one pipeline per passstate.Key for a program, all sharing a layout.
// Culling on means back faces are culled; depth on means depth test and write are enabled.
type Variants interface {
	Program() shader.Program

	// Layout returns the layout shared by every variant.
	Layout() backend.PipelineLayout

	// Select returns the pipeline compiled for key.
	//
	// Parameters:
	//   - key: the cull/depth selection, usually passstate.PassState.Current()
	//
	// Returns:
	//   - Pipeline: the matching variant
	Select(key passstate.Key) Pipeline

	// Release destroys every variant and the shared layout.
	Release()
}

var _ Variants = &variantsImpl{}

// DepthStateFunc returns the depth configuration for the depth-on or depth-off variants.
// target.RenderTargetSet.DepthState satisfies it.
type DepthStateFunc func(enabled bool) backend.DepthStencilState

// NewVariants precreates the four cull/depth variants of program. opts are applied to every
// variant before its cull and depth state.
//
// Parameters:
//   - be: the backend that compiles the pipelines
//   - program: the validated program
//   - depth: the depth state of the pass the variants are used in, per depth key
//   - opts: shared options such as WithColorFormat and WithSampleCount
//
// Returns:
//   - Variants: the variant set
//   - error: error if any variant failed; nothing is leaked on failure
func NewVariants(be backend.RendererBackend, program shader.Program, depth DepthStateFunc, opts ...PipelineBuilderOption) (Variants, error) {
	layout, err := be.CreatePipelineLayout(program.Layout())
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: failed to create layout: %w", program.Name(), err)
	}

	v := &variantsImpl{
		program:   program,
		layout:    layout,
		pipelines: make(map[passstate.Key]Pipeline, len(passstate.Keys)),
	}
	for _, key := range passstate.Keys {
		cull := backend.CullModeNone
		if key.Cull {
			cull = backend.CullModeBack
		}
		variantOpts := append(append([]PipelineBuilderOption(nil), opts...),
			WithLayout(layout),
			WithLabel(program.Name()+"/"+key.String()),
			WithCullMode(cull),
			WithDepthStencil(depth(key.Depth)),
		)
		p, err := NewPipeline(be, program, variantOpts...)
		if err != nil {
			v.Release()
			return nil, err
		}
		v.pipelines[key] = p
	}
	return v, nil
}

func (v *variantsImpl) Program() shader.Program {
	return v.program
}

func (v *variantsImpl) Layout() backend.PipelineLayout {
	return v.layout
}

func (v *variantsImpl) Select(key passstate.Key) Pipeline {
	return v.pipelines[key]
}

func (v *variantsImpl) Release() {
	for key, p := range v.pipelines {
		p.Release()
		delete(v.pipelines, key)
	}
	if v.layout != nil {
		v.layout.Release()
		v.layout = nil
	}
}
