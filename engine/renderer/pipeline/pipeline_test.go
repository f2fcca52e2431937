package pipeline

import (
	"io"
	"testing"

	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/renderer/passstate"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	m.Run()
}

func depthStates(enabled bool) backend.DepthStencilState {
	return backend.DepthStencilState{
		Format:       backend.TextureFormatDepth24PlusStencil8,
		TestEnabled:  enabled,
		WriteEnabled: enabled,
	}
}

func TestVariants(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	program, err := shader.NewLightProgram()
	require.NoError(t, err)

	v, err := NewVariants(be, program, depthStates, WithSampleCount(4))
	require.NoError(t, err)
	assert.Equal(t, 4, be.Live(backend.KindPipeline))
	assert.Equal(t, 1, be.Live(backend.KindPipelineLayout))

	tests := []struct {
		key   passstate.Key
		cull  backend.CullMode
		depth bool
	}{
		{key: passstate.Key{Cull: false, Depth: false}, cull: backend.CullModeNone, depth: false},
		{key: passstate.Key{Cull: false, Depth: true}, cull: backend.CullModeNone, depth: true},
		{key: passstate.Key{Cull: true, Depth: false}, cull: backend.CullModeBack, depth: false},
		{key: passstate.Key{Cull: true, Depth: true}, cull: backend.CullModeBack, depth: true},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			p := v.Select(tt.key)
			require.NotNil(t, p)
			assert.Equal(t, "light/"+tt.key.String(), p.Label())
			assert.Equal(t, tt.cull, p.CullMode())
			assert.Equal(t, tt.depth, p.DepthTestEnabled())
			assert.Equal(t, tt.depth, p.DepthWriteEnabled())
			assert.Equal(t, backend.FrontFaceCW, p.FrontFace())
			assert.Same(t, v.Layout(), p.Layout())
		})
	}

	v.Release()
	assert.Equal(t, 0, be.LiveTotal())
}

func TestVariantsReleaseOnFailure(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	program, err := shader.NewSkyboxProgram()
	require.NoError(t, err)

	be.InjectFailure(backend.OpCreatePipeline, 3)
	_, err = NewVariants(be, program, depthStates)
	assert.ErrorIs(t, err, backend.ErrInjected)
	assert.Equal(t, 0, be.LiveTotal())
}

func TestVariantsTakeDepthFromProvider(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	program, err := shader.NewLightProgram()
	require.NoError(t, err)

	var asked []bool
	readOnly := func(enabled bool) backend.DepthStencilState {
		asked = append(asked, enabled)
		return backend.DepthStencilState{
			Format:      backend.TextureFormatDepth24PlusStencil8,
			TestEnabled: enabled,
		}
	}
	v, err := NewVariants(be, program, readOnly)
	require.NoError(t, err)
	defer v.Release()

	assert.ElementsMatch(t, []bool{false, true, false, true}, asked)
	on := v.Select(passstate.Key{Cull: true, Depth: true})
	assert.True(t, on.DepthTestEnabled())
	assert.False(t, on.DepthWriteEnabled())
	off := v.Select(passstate.Key{Cull: false, Depth: false})
	assert.False(t, off.DepthTestEnabled())
	assert.False(t, off.DepthWriteEnabled())
}

func TestStandalonePipelineOwnsLayout(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	program, err := shader.NewToneMapProgram()
	require.NoError(t, err)

	p, err := NewPipeline(be, program,
		WithColorFormat(be.SurfaceFormat()),
		WithBlend(backend.BlendAlpha),
	)
	require.NoError(t, err)
	assert.Equal(t, "tonemap", p.Label())
	assert.Equal(t, backend.BlendAlpha, p.Blend())
	assert.False(t, p.DepthTestEnabled(), "no depth attachment")
	assert.Equal(t, 1, be.Live(backend.KindPipelineLayout))

	p.Release()
	assert.Equal(t, 0, be.LiveTotal())
}

func TestStandalonePipelineFailureReleasesLayout(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	program, err := shader.NewToneMapProgram()
	require.NoError(t, err)

	be.InjectFailure(backend.OpCreatePipeline, 1)
	_, err = NewPipeline(be, program)
	assert.ErrorIs(t, err, backend.ErrInjected)
	assert.Equal(t, 0, be.LiveTotal())
}

func TestStandalonePipelineDepthOptions(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	program, err := shader.NewSkyboxProgram()
	require.NoError(t, err)

	p, err := NewPipeline(be, program,
		WithDepthFormat(backend.TextureFormatDepth24PlusStencil8),
		WithDepthTestEnabled(true),
		WithDepthWriteEnabled(false),
	)
	require.NoError(t, err)
	defer p.Release()
	assert.True(t, p.DepthTestEnabled())
	assert.False(t, p.DepthWriteEnabled())
}
