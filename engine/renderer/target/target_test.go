package target

import (
	"io"
	"testing"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/device"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	m.Run()
}

func newTestSet(t *testing.T, samples uint32) (RenderTargetSet, backend.HeadlessRendererBackend) {
	t.Helper()
	b := backend.NewHeadlessRendererBackend()
	d, err := device.NewDevice(&device.HeadlessSurface{}, device.WithBackend(b), device.WithSize(800, 600))
	require.NoError(t, err)

	set := NewRenderTargetSet(d)
	require.NoError(t, set.Build(800, 600, samples))
	return set, b
}

type liveCounts struct {
	textures int
	views    int
	total    int
}

func snapshot(b backend.HeadlessRendererBackend) liveCounts {
	return liveCounts{
		textures: b.Live(backend.KindTexture),
		views:    b.Live(backend.KindTextureView),
		total:    b.LiveTotal(),
	}
}

func TestBuildAllocations(t *testing.T) {
	tests := []struct {
		name         string
		samples      uint32
		wantTextures int
		wantViews    int
	}{
		{"msaa", 4, 3, 4},
		{"single sample", 1, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, b := newTestSet(t, tt.samples)

			assert.Equal(t, tt.wantTextures, b.Live(backend.KindTexture))
			assert.Equal(t, tt.wantViews, b.Live(backend.KindTextureView))
			assert.Equal(t, tt.samples, set.SampleCount())
			assert.Equal(t, uint32(800), set.HDRView().Width())

			set.Release()
			assert.Equal(t, 0, b.LiveTotal())
		})
	}
}

func TestBuildZeroSize(t *testing.T) {
	set := NewRenderTargetSet(nil)
	assert.ErrorIs(t, set.Build(0, 600, 4), ErrZeroSize)
}

func TestResizeIdempotence(t *testing.T) {
	set, b := newTestSet(t, 4)
	before := snapshot(b)

	require.NoError(t, set.Resize(1024, 768))
	once := snapshot(b)
	firstGen := set.Generation()
	vp := set.Viewport()

	require.NoError(t, set.Resize(1024, 768))
	twice := snapshot(b)

	assert.Equal(t, before, once)
	assert.Equal(t, once, twice)
	assert.Equal(t, vp, set.Viewport())
	assert.Equal(t, common.Extent{Width: 1024, Height: 768}, set.Size())
	assert.Equal(t, float32(1024), vp.Width)
	assert.Equal(t, float32(768), vp.Height)
	assert.NotEqual(t, firstGen, set.Generation(), "every rebuild gets a new generation")

	w, h := b.SurfaceSize()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)
}

func TestResizeZeroIsNoop(t *testing.T) {
	set, b := newTestSet(t, 4)
	gen := set.Generation()
	b.ResetCalls()

	require.NoError(t, set.Resize(0, 0))
	require.NoError(t, set.Resize(1024, 0))

	assert.Empty(t, b.Calls())
	assert.Equal(t, gen, set.Generation())
	assert.Equal(t, common.Extent{Width: 800, Height: 600}, set.Size())
}

func TestResizeFailureKeepsPreviousSet(t *testing.T) {
	tests := []struct {
		name string
		op   backend.Op
		nth  int
	}{
		// depth, hdr, then the resolve texture: fails right after the HDR texture step.
		{"after hdr texture", backend.OpCreateTexture, 3},
		{"depth buffer", backend.OpCreateTexture, 1},
		{"hdr shader view", backend.OpCreateView, 4},
		{"swapchain", backend.OpConfigureSurface, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, b := newTestSet(t, 4)
			before := snapshot(b)
			gen := set.Generation()

			b.InjectFailure(tt.op, tt.nth)
			require.ErrorIs(t, set.Resize(1024, 768), backend.ErrInjected)

			assert.Equal(t, before, snapshot(b), "staged resources must be released")
			assert.Equal(t, gen, set.Generation())
			assert.Equal(t, common.Extent{Width: 800, Height: 600}, set.Size())
			assert.Equal(t, uint32(800), set.HDRView().Width())
			w, h := b.SurfaceSize()
			assert.Equal(t, uint32(800), w)
			assert.Equal(t, uint32(600), h)

			// The previous set still renders a frame with consistent attachment sizes.
			require.NoError(t, set.BeginScene(common.Color{}))
			require.NoError(t, set.EndFrameComposite())
			require.NoError(t, set.EndComposite())
			require.NoError(t, b.Present())
			assert.Empty(t, b.Violations())

			// The next resize event retries successfully.
			require.NoError(t, set.Resize(1024, 768))
			assert.Equal(t, common.Extent{Width: 1024, Height: 768}, set.Size())
		})
	}
}

func TestFramePassTargets(t *testing.T) {
	set, b := newTestSet(t, 4)
	b.ResetCalls()

	require.NoError(t, set.BeginScene(common.Color{R: 0.3, G: 0.3, B: 0.3, A: 0.1}))
	require.NoError(t, set.EndFrameComposite())
	require.NoError(t, set.EndComposite())
	require.NoError(t, b.Present())

	var passes []backend.Call
	for _, c := range b.Calls() {
		if c.Op == backend.OpBeginPass {
			passes = append(passes, c)
		}
	}
	require.Len(t, passes, 2)
	assert.Equal(t, LabelHDR, passes[0].Target)
	assert.Equal(t, LabelHDRResolve, passes[0].Resolve)
	assert.Equal(t, LabelDepth, passes[0].Depth)
	assert.Equal(t, backend.BackbufferLabel, passes[1].Target)
	assert.Empty(t, passes[1].Depth)
	assert.Empty(t, b.Violations())
}

func TestFrameOrdering(t *testing.T) {
	set, _ := newTestSet(t, 1)

	assert.ErrorIs(t, set.EndFrameComposite(), ErrNoFrame)
	assert.ErrorIs(t, set.EndComposite(), ErrNoFrame)

	require.NoError(t, set.BeginScene(common.Color{}))
	assert.ErrorIs(t, set.Resize(640, 480), ErrFrameInProgress)
	assert.ErrorIs(t, set.BeginScene(common.Color{}), ErrFrameInProgress)

	set.Abort()
	require.NoError(t, set.Resize(640, 480))
}

func TestCompositeFailureReleasesBackbuffer(t *testing.T) {
	tests := []struct {
		name string
		op   backend.Op
		nth  int
		step func(RenderTargetSet) error
	}{
		{name: "scene end pass", op: backend.OpEndPass, nth: 1, step: RenderTargetSet.EndFrameComposite},
		{name: "composite begin pass", op: backend.OpBeginPass, nth: 2, step: RenderTargetSet.EndFrameComposite},
		{name: "composite end pass", op: backend.OpEndPass, nth: 2, step: RenderTargetSet.EndComposite},
		{name: "submit", op: backend.OpSubmit, nth: 1, step: RenderTargetSet.EndComposite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, b := newTestSet(t, 4)
			b.InjectFailure(tt.op, tt.nth)

			require.NoError(t, set.BeginScene(common.Color{}))
			err := set.EndFrameComposite()
			if err == nil {
				err = set.EndComposite()
			}
			assert.ErrorIs(t, err, backend.ErrInjected)
			assert.ErrorIs(t, tt.step(set), ErrNoFrame, "the failed frame is closed")
			set.Abort()

			require.NoError(t, set.BeginScene(common.Color{}))
			require.NoError(t, set.EndFrameComposite())
			require.NoError(t, set.EndComposite())
			require.NoError(t, b.Present())
			assert.Equal(t, 1, b.PresentCount())
			assert.Empty(t, b.Violations())
		})
	}
}

func TestAbortDiscardsBackbuffer(t *testing.T) {
	set, b := newTestSet(t, 1)

	require.NoError(t, set.BeginScene(common.Color{}))
	require.NoError(t, set.EndFrameComposite())
	b.ResetCalls()
	set.Abort()

	var discards int
	for _, c := range b.Calls() {
		if c.Op == backend.OpDiscardBackbuffer {
			discards++
		}
	}
	assert.Equal(t, 1, discards)
	assert.Error(t, b.Present(), "nothing is left to present")

	require.NoError(t, set.BeginScene(common.Color{}))
	require.NoError(t, set.EndFrameComposite())
	require.NoError(t, set.EndComposite())
	require.NoError(t, b.Present())
}

func TestNotBuilt(t *testing.T) {
	set := NewRenderTargetSet(nil)
	assert.ErrorIs(t, set.Resize(10, 10), ErrNotBuilt)
	assert.ErrorIs(t, set.BeginScene(common.Color{}), ErrNotBuilt)
}

func TestDepthState(t *testing.T) {
	set := NewRenderTargetSet(nil)

	on := set.DepthState(true)
	off := set.DepthState(false)
	assert.True(t, on.TestEnabled)
	assert.True(t, on.WriteEnabled)
	assert.False(t, off.TestEnabled)
	assert.False(t, off.WriteEnabled)
	assert.Equal(t, DepthFormat, on.Format)
	assert.Equal(t, DepthFormat, off.Format)
}
