package pipeline

import "github.com/Carmen-Shannon/lumen/engine/renderer/backend"

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithLabel overrides the pipeline label.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label for this pipeline
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}

// WithLayout shares an existing layout instead of creating one. The pipeline does not release it.
//
// Parameters:
//   - layout: a layout created from the same program
//
// Returns:
//   - PipelineBuilderOption: a function that sets the layout for this pipeline
func WithLayout(layout backend.PipelineLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.layout = layout
	}
}

// WithColorFormat sets the format of the colour attachment the pipeline renders into.
//
// Parameters:
//   - format: the colour attachment format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the colour format for this pipeline
func WithColorFormat(format backend.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithSampleCount sets the multisample count, it must match the pass attachments.
//
// Parameters:
//   - samples: samples per pixel
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSampleCount(samples uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleCount = max(samples, 1)
	}
}

// WithDepthFormat declares the depth attachment format. Without it the pipeline has no depth state.
//
// Parameters:
//   - format: the depth-stencil format of the pass
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth format for this pipeline
func WithDepthFormat(format backend.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithCullMode sets the face culling mode.
//
// Parameters:
//   - mode: none, back or front
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode backend.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the winding of front-facing triangles.
//
// Parameters:
//   - frontFace: clockwise or counter-clockwise
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace backend.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithBlend sets the colour blend preset.
//
// Parameters:
//   - blend: BlendNone or BlendAlpha
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend mode for this pipeline
func WithBlend(blend backend.BlendMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blend = blend
	}
}

// WithDepthStencil applies a complete depth configuration: format, test and write.
//
// Parameters:
//   - state: the depth-stencil state of the pass the pipeline draws in
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth state for this pipeline
func WithDepthStencil(state backend.DepthStencilState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = state.Format
		p.depthTestEnabled = state.TestEnabled
		p.depthWriteEnabled = state.WriteEnabled
	}
}
