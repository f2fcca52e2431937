// Package pipeline compiles shader programs into render pipelines with a fixed
// rasterizer, depth and blend configuration.
package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	label   string
	program shader.Program

	layout      backend.PipelineLayout
	ownsLayout  bool
	gpu         backend.RenderPipeline
	colorFormat backend.TextureFormat
	sampleCount uint32

	// depthFormat is TextureFormatUndefined for pipelines used in passes without a depth attachment.
	depthFormat       backend.TextureFormat
	depthTestEnabled  bool
	depthWriteEnabled bool
	cullMode          backend.CullMode
	frontFace         backend.FrontFace
	blend             backend.BlendMode
}

// Pipeline is one compiled configuration of a program.
type Pipeline interface {
	// Label returns the pipeline label, "<program>" or "<program>/<variant>".
	Label() string

	// Program returns the program the pipeline was compiled from.
	Program() shader.Program

	// Layout returns the pipeline layout, used to create bind groups for this pipeline.
	//
	// Returns:
	//   - backend.PipelineLayout: the shared or owned layout
	Layout() backend.PipelineLayout

	// GPU returns the backend pipeline to bind with SetPipeline.
	GPU() backend.RenderPipeline

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - backend.CullMode: none, back or front
	CullMode() backend.CullMode

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() backend.FrontFace

	// Blend returns the colour blend preset.
	Blend() backend.BlendMode

	// Release destroys the GPU pipeline and, when owned, its layout.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline compiles program with the configured state. When no layout is supplied
// via WithLayout one is created from the program and owned by the pipeline.
//
// Parameters:
//   - be: the backend that compiles the pipeline
//   - program: the validated program
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the compiled pipeline
//   - error: error if the layout or the pipeline could not be created
func NewPipeline(be backend.RendererBackend, program shader.Program, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		label:             program.Name(),
		program:           program,
		colorFormat:       backend.TextureFormatRGBA16Float,
		sampleCount:       1,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          backend.CullModeNone,
		frontFace:         backend.FrontFaceCW,
		blend:             backend.BlendNone,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.layout == nil {
		layout, err := be.CreatePipelineLayout(program.Layout())
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: failed to create layout: %w", p.label, err)
		}
		p.layout = layout
		p.ownsLayout = true
	}

	desc := backend.PipelineDescriptor{
		Label:         p.label,
		Layout:        p.layout,
		Source:        program.Source(),
		VertexEntry:   program.VertexEntry(),
		FragmentEntry: program.FragmentEntry(),
		VertexLayouts: program.VertexLayouts(),
		ColorFormat:   p.colorFormat,
		SampleCount:   p.sampleCount,
		Topology:      program.Topology(),
		CullMode:      p.cullMode,
		FrontFace:     p.frontFace,
		Blend:         p.blend,
	}
	if p.depthFormat != backend.TextureFormatUndefined {
		desc.DepthStencil = &backend.DepthStencilState{
			Format:       p.depthFormat,
			TestEnabled:  p.depthTestEnabled,
			WriteEnabled: p.depthWriteEnabled,
		}
	}

	gpu, err := be.CreateRenderPipeline(desc)
	if err != nil {
		if p.ownsLayout {
			p.layout.Release()
		}
		return nil, fmt.Errorf("pipeline %s: %w", p.label, err)
	}
	p.gpu = gpu
	return p, nil
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Program() shader.Program {
	return p.program
}

func (p *pipeline) Layout() backend.PipelineLayout {
	return p.layout
}

func (p *pipeline) GPU() backend.RenderPipeline {
	return p.gpu
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthFormat != backend.TextureFormatUndefined && p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthFormat != backend.TextureFormatUndefined && p.depthWriteEnabled
}

func (p *pipeline) CullMode() backend.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() backend.FrontFace {
	return p.frontFace
}

func (p *pipeline) Blend() backend.BlendMode {
	return p.blend
}

func (p *pipeline) Release() {
	p.gpu.Release()
	if p.ownsLayout {
		p.layout.Release()
	}
}
