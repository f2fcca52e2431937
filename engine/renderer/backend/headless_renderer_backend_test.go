package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlessResourceCounting(t *testing.T) {
	b := NewHeadlessRendererBackend()

	tex, err := b.CreateTexture(TextureDescriptor{Label: "hdr", Width: 4, Height: 4, SampleCount: 4, Format: TextureFormatRGBA16Float})
	require.NoError(t, err)
	view, err := tex.CreateView("hdr-view")
	require.NoError(t, err)
	buf, err := b.CreateBuffer(BufferDescriptor{Label: "u", Size: 64, Usage: BufferUsageUniform})
	require.NoError(t, err)

	assert.Equal(t, 1, b.Live(KindTexture))
	assert.Equal(t, 1, b.Live(KindTextureView))
	assert.Equal(t, 3, b.LiveTotal())
	assert.Equal(t, uint32(4), tex.SampleCount())

	view.Release()
	view.Release()
	tex.Release()
	buf.Release()
	assert.Equal(t, 0, b.LiveTotal())
}

func TestHeadlessInjectFailure(t *testing.T) {
	b := NewHeadlessRendererBackend()
	b.InjectFailure(OpCreateTexture, 2)

	first, err := b.CreateTexture(TextureDescriptor{Label: "a", Width: 1, Height: 1})
	require.NoError(t, err)
	_, err = b.CreateTexture(TextureDescriptor{Label: "b", Width: 1, Height: 1})
	require.ErrorIs(t, err, ErrInjected)
	_, err = b.CreateTexture(TextureDescriptor{Label: "c", Width: 1, Height: 1})
	require.NoError(t, err)

	first.Release()
	assert.Equal(t, 1, b.Live(KindTexture))
}

func TestHeadlessFrameRecording(t *testing.T) {
	b := NewHeadlessRendererBackend()
	require.NoError(t, b.ConfigureSurface(800, 600, PresentModeVSync))

	layout, err := b.CreatePipelineLayout(PipelineLayoutDescriptor{Label: "layout", BindGroups: [][]BindingLayout{{}}})
	require.NoError(t, err)
	pipe, err := b.CreateRenderPipeline(PipelineDescriptor{Label: "tonemap", Layout: layout, VertexEntry: "vs_main", FragmentEntry: "fs_main"})
	require.NoError(t, err)

	require.NoError(t, b.BeginCommands())
	bb, err := b.AcquireBackbuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(800), bb.Width())

	require.NoError(t, b.BeginPass(PassDescriptor{Label: "composite", Color: ColorAttachment{View: bb}}))
	b.SetPipeline(pipe)
	b.Draw(3)
	require.NoError(t, b.EndPass())
	require.NoError(t, b.Submit())
	require.NoError(t, b.Present())

	assert.Equal(t, 1, b.PresentCount())
	assert.Empty(t, b.Violations())

	var passes []Call
	for _, c := range b.Calls() {
		if c.Op == OpBeginPass {
			passes = append(passes, c)
		}
	}
	require.Len(t, passes, 1)
	assert.Equal(t, BackbufferLabel, passes[0].Target)
}

func TestHeadlessPassOrdering(t *testing.T) {
	b := NewHeadlessRendererBackend()
	require.NoError(t, b.ConfigureSurface(16, 16, PresentModeUncapped))

	bb, err := b.AcquireBackbuffer()
	require.NoError(t, err)
	assert.ErrorIs(t, b.BeginPass(PassDescriptor{Color: ColorAttachment{View: bb}}), ErrNoCommands)
	assert.ErrorIs(t, b.EndPass(), ErrNoPass)

	b.Draw(3)
	assert.Len(t, b.Violations(), 1)

	_, err = b.AcquireBackbuffer()
	assert.Error(t, err, "second acquire before present must fail")
}

func TestHeadlessDiscardBackbuffer(t *testing.T) {
	b := NewHeadlessRendererBackend()
	require.NoError(t, b.ConfigureSurface(16, 16, PresentModeUncapped))

	b.DiscardBackbuffer()
	_, err := b.AcquireBackbuffer()
	require.NoError(t, err)
	b.DiscardBackbuffer()

	_, err = b.AcquireBackbuffer()
	require.NoError(t, err, "a discarded backbuffer can be acquired again")
	require.NoError(t, b.Present())
	assert.Equal(t, 1, b.PresentCount())
	assert.Error(t, b.Present(), "nothing left to present")
}

func TestHeadlessInjectedEndPassClosesPass(t *testing.T) {
	b := NewHeadlessRendererBackend()
	require.NoError(t, b.ConfigureSurface(16, 16, PresentModeUncapped))
	bb, err := b.AcquireBackbuffer()
	require.NoError(t, err)

	require.NoError(t, b.BeginCommands())
	require.NoError(t, b.BeginPass(PassDescriptor{Color: ColorAttachment{View: bb}}))
	b.InjectFailure(OpEndPass, 1)
	assert.ErrorIs(t, b.EndPass(), ErrInjected)
	require.NoError(t, b.Submit())
	assert.Empty(t, b.Violations())
}

func TestHeadlessDepthMismatchIsViolation(t *testing.T) {
	b := NewHeadlessRendererBackend()

	color, err := b.CreateTexture(TextureDescriptor{Label: "c", Width: 8, Height: 8, SampleCount: 4})
	require.NoError(t, err)
	depth, err := b.CreateTexture(TextureDescriptor{Label: "d", Width: 8, Height: 8, SampleCount: 1})
	require.NoError(t, err)
	cv, err := color.CreateView("c")
	require.NoError(t, err)
	dv, err := depth.CreateView("d")
	require.NoError(t, err)

	require.NoError(t, b.BeginCommands())
	require.NoError(t, b.BeginPass(PassDescriptor{Color: ColorAttachment{View: cv}, Depth: &DepthAttachment{View: dv, ClearDepth: 1}}))
	assert.Len(t, b.Violations(), 1)
}

func TestHeadlessBindGroupValidation(t *testing.T) {
	b := NewHeadlessRendererBackend()
	layout, err := b.CreatePipelineLayout(PipelineLayoutDescriptor{
		Label: "layout",
		BindGroups: [][]BindingLayout{
			{{Binding: 0, Type: BindingTypeUniform, Visibility: ShaderStageVertex, MinSize: 64}},
		},
	})
	require.NoError(t, err)

	_, err = b.CreateBindGroup(BindGroupDescriptor{Label: "bg", Layout: layout, Group: 0})
	assert.Error(t, err)

	buf, err := b.CreateBuffer(BufferDescriptor{Label: "u", Size: 64})
	require.NoError(t, err)
	bg, err := b.CreateBindGroup(BindGroupDescriptor{Label: "bg", Layout: layout, Group: 0, Entries: []BindGroupEntry{{Binding: 0, Buffer: buf}}})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Live(KindBindGroup))
	bg.Release()
	assert.Equal(t, 0, b.Live(KindBindGroup))

	assert.Error(t, b.WriteBuffer(buf, 32, make([]byte, 64)))
}
