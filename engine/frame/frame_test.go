package frame

import (
	"errors"
	"io"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/device"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/mesh"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/Carmen-Shannon/lumen/engine/renderer/passstate"
	"github.com/Carmen-Shannon/lumen/engine/renderer/target"
	"github.com/Carmen-Shannon/lumen/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixture struct {
	be       backend.HeadlessRendererBackend
	dev      device.Device
	orch     Orchestrator
	recorder *passstate.Recorder
}

func newFixture(t *testing.T, options ...OrchestratorBuilderOption) *fixture {
	t.Helper()

	be := backend.NewHeadlessRendererBackend()
	dev, err := device.NewDevice(&device.HeadlessSurface{}, device.WithBackend(be), device.WithSize(800, 600))
	require.NoError(t, err)

	rec := &passstate.Recorder{}
	cam := camera.NewCamera(camera.WithPosition(0, 0, -5))
	orch, err := NewOrchestrator(dev, cam, light.NewLight(), append([]OrchestratorBuilderOption{WithRecorder(rec)}, options...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		orch.Release()
		dev.Release()
	})
	be.ResetCalls()
	return &fixture{be: be, dev: dev, orch: orch, recorder: rec}
}

func (f *fixture) cube(t *testing.T, name string, subs ...mesh.SubMesh) mesh.DrawableMesh {
	t.Helper()
	opts := []mesh.MeshBuilderOption{mesh.WithName(name)}
	if len(subs) > 0 {
		opts = append(opts, mesh.WithSubMeshes(subs...))
	}
	m, err := mesh.NewDrawableMesh(f.be, mesh.Cube(1), opts...)
	require.NoError(t, err)
	return m
}

func callsOf(calls []backend.Call, op backend.Op) []backend.Call {
	var out []backend.Call
	for _, c := range calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// sceneVertexBuffers returns the vertex buffers bound for scene geometry, the sky excluded.
func sceneVertexBuffers(calls []backend.Call) []string {
	var out []string
	for _, c := range callsOf(calls, backend.OpSetVertexBuffer) {
		if !strings.HasPrefix(c.Label, "sky") {
			out = append(out, c.Label)
		}
	}
	return out
}

func TestToggleSequencePerFrame(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

	for range 2 {
		require.NoError(t, f.orch.Frame(16*time.Millisecond))
	}

	want := []passstate.Toggle{
		passstate.CullOff, passstate.DepthOff, passstate.CullOn, passstate.DepthOn,
		passstate.CullOff, passstate.DepthOff, passstate.CullOn, passstate.DepthOn,
	}
	assert.Equal(t, want, f.recorder.Toggles())

	var pipelines []string
	for _, c := range callsOf(f.be.Calls(), backend.OpSetPipeline) {
		pipelines = append(pipelines, c.Label)
	}
	assert.Equal(t, []string{
		"skybox/cull-off,depth-off", "light/cull-on,depth-on", "tonemap",
		"skybox/cull-off,depth-off", "light/cull-on,depth-on", "tonemap",
	}, pipelines)
	assert.Empty(t, f.be.Violations())
}

func TestBackbufferTargetedOncePerFrame(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

	const frames = 3
	for range frames {
		require.NoError(t, f.orch.Frame(time.Millisecond))
	}

	passes := callsOf(f.be.Calls(), backend.OpBeginPass)
	require.Len(t, passes, 2*frames)
	backbuffer := 0
	for i, p := range passes {
		if p.Target == backend.BackbufferLabel {
			backbuffer++
			assert.Equal(t, 1, i%2, "backbuffer pass must be the second pass of a frame")
			assert.Empty(t, p.Depth)
		} else {
			assert.Equal(t, target.LabelHDR, p.Target)
			assert.Equal(t, target.LabelHDRResolve, p.Resolve)
			assert.Equal(t, target.LabelDepth, p.Depth)
		}
	}
	assert.Equal(t, frames, backbuffer)

	draws := callsOf(f.be.Calls(), backend.OpDraw)
	require.Len(t, draws, frames)
	for _, d := range draws {
		assert.Equal(t, uint32(ToneMapVertexCount), d.Count)
	}
	assert.Equal(t, frames, f.be.PresentCount())
}

func TestNullTextureSlots(t *testing.T) {
	f := newFixture(t)

	albedo, err := f.orch.Textures().Acquire("albedo.png", common.TextureStagingData{
		Pixels: make([]byte, 4), Width: 1, Height: 1, BytesPerPixel: 4,
	}, backend.TextureFormatRGBA8Unorm)
	require.NoError(t, err)

	var textured mesh.SubMesh
	textured.StartIndex, textured.IndexCount = 0, 18
	textured.Textures[mesh.SlotDiffuse] = albedo
	bare := mesh.SubMesh{StartIndex: 18, IndexCount: 18}

	require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box", textured, bare)))
	require.NoError(t, f.orch.Frame(time.Millisecond))

	stats := f.orch.Stats()
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 3, stats.Draws)

	groups := callsOf(f.be.Calls(), backend.OpCreateBindGroup)
	var object [][]string
	for _, g := range groups {
		if strings.HasPrefix(g.Label, "light/") {
			object = append(object, g.Views)
		}
	}
	require.Len(t, object, 2)
	require.Len(t, object[0], mesh.SlotCount)
	assert.Equal(t, "albedo.png", object[0][0])
	for _, v := range object[0][1:] {
		assert.Equal(t, texture.FallbackKey, v)
	}
	for _, v := range object[1] {
		assert.Equal(t, texture.FallbackKey, v)
	}

	indexed := callsOf(f.be.Calls(), backend.OpDrawIndexed)
	require.Len(t, indexed, 3)
	assert.Equal(t, uint32(18), indexed[1].Count)
	assert.Equal(t, uint32(18), indexed[2].Count)
	assert.Empty(t, f.be.Violations())
}

func TestSceneIsolation(t *testing.T) {
	f := newFixture(t)
	names := map[SceneID]string{
		SceneSponza:        "sponza",
		SceneDamagedHelmet: "damaged",
		SceneScifiHelmet:   "scifi",
	}
	for id, name := range names {
		require.NoError(t, f.orch.RegisterScene(id, f.cube(t, name)))
	}

	last := len(SceneIDs) - 1
	tests := []struct {
		name  string
		index int
		want  SceneID
	}{
		{"first", 0, SceneSponza},
		{"second", 1, SceneDamagedHelmet},
		{"last", last, SceneScifiHelmet},
		{"below range clamps", -3, SceneSponza},
		{"above range clamps", 42, SceneScifiHelmet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.be.ResetCalls()
			assert.Equal(t, tt.want, f.orch.SelectScene(tt.index))
			require.NoError(t, f.orch.Frame(time.Millisecond))

			assert.Equal(t, []string{names[tt.want] + "-vertices"}, sceneVertexBuffers(f.be.Calls()))
			assert.Equal(t, tt.want, f.orch.Stats().Scene)
		})
	}
}

func TestUnregisteredSceneDrawsBackgroundOnly(t *testing.T) {
	f := newFixture(t)
	f.orch.SelectScene(int(SceneScifiHelmet))

	require.NoError(t, f.orch.Frame(time.Millisecond))
	assert.Empty(t, sceneVertexBuffers(f.be.Calls()))
	assert.Equal(t, 1, f.orch.Stats().Draws)
	assert.Equal(t, 1, f.be.PresentCount())
}

func TestRegisterUnknownScene(t *testing.T) {
	f := newFixture(t)
	err := f.orch.RegisterScene(SceneID(7))
	assert.ErrorIs(t, err, ErrUnknownScene)
}

func TestResizeEndToEnd(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

	require.NoError(t, f.orch.Frame(time.Millisecond))
	f.orch.Resize(1024, 768)
	require.NoError(t, f.orch.Frame(time.Millisecond))

	viewports := callsOf(f.be.Calls(), backend.OpSetViewport)
	require.NotEmpty(t, viewports)
	lastVP := viewports[len(viewports)-1]
	assert.Equal(t, uint32(1024), lastVP.Width)
	assert.Equal(t, uint32(768), lastVP.Height)

	vp := f.orch.Target().Viewport()
	assert.Equal(t, float32(1024), vp.Width)
	assert.Equal(t, float32(768), vp.Height)
	assert.Equal(t, common.Viewport{Width: 1024, Height: 768, MinDepth: 0, MaxDepth: 1}, f.orch.Parameters().Viewport)

	w, h := f.be.SurfaceSize()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)
	assert.Equal(t, 2, f.be.PresentCount())
	assert.Empty(t, f.be.Violations())
}

func TestResizeRebindsToneMapInput(t *testing.T) {
	f := newFixture(t)
	before := f.orch.Target().Generation()

	f.orch.Resize(640, 480)
	require.NoError(t, f.orch.Frame(time.Millisecond))
	assert.NotEqual(t, before, f.orch.Target().Generation())

	var rebinds int
	for _, c := range callsOf(f.be.Calls(), backend.OpCreateBindGroup) {
		if c.Label == "tonemap" {
			rebinds++
			assert.Equal(t, []string{target.LabelHDRShader}, c.Views)
		}
	}
	assert.Equal(t, 1, rebinds)
}

func TestResizeIgnoresZero(t *testing.T) {
	f := newFixture(t)
	gen := f.orch.Target().Generation()

	f.orch.Resize(0, 768)
	f.orch.Resize(1024, 0)
	require.NoError(t, f.orch.Frame(time.Millisecond))

	assert.Equal(t, gen, f.orch.Target().Generation())
	assert.Equal(t, common.Extent{Width: 800, Height: 600}, f.orch.Target().Size())
}

func TestResizeCoalescesToLatest(t *testing.T) {
	f := newFixture(t)

	f.orch.Resize(1024, 768)
	f.orch.Resize(1280, 720)
	require.NoError(t, f.orch.Frame(time.Millisecond))

	assert.Equal(t, common.Extent{Width: 1280, Height: 720}, f.orch.Target().Size())
	assert.Len(t, callsOf(f.be.Calls(), backend.OpConfigureSurface), 1)
}

func TestResizeFailureKeepsPreviousTargets(t *testing.T) {
	f := newFixture(t)
	gen := f.orch.Target().Generation()
	live := f.be.LiveTotal()

	f.be.InjectFailure(backend.OpCreateTexture, 2)
	f.orch.Resize(1024, 768)
	require.NoError(t, f.orch.Frame(time.Millisecond))

	assert.Equal(t, gen, f.orch.Target().Generation())
	assert.Equal(t, common.Extent{Width: 800, Height: 600}, f.orch.Target().Size())
	assert.Equal(t, live, f.be.LiveTotal())
	assert.Equal(t, 1, f.be.PresentCount())

	f.orch.Resize(1024, 768)
	require.NoError(t, f.orch.Frame(time.Millisecond))
	assert.Equal(t, common.Extent{Width: 1024, Height: 768}, f.orch.Target().Size())
	assert.Equal(t, 2, f.be.PresentCount())
}

func TestPerDrawFailureIsSkipped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

	// The sky's object bind group is the first one created during the first frame.
	f.be.InjectFailure(backend.OpCreateBindGroup, 1)
	require.NoError(t, f.orch.Frame(time.Millisecond))

	stats := f.orch.Stats()
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Draws)
	assert.Equal(t, 1, f.be.PresentCount())

	require.NoError(t, f.orch.Frame(time.Millisecond))
	stats = f.orch.Stats()
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 2, stats.Draws)
}

func TestUniformUploadFailureIsSkipped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

	// camera, light and tonemap parameters come first, then the sky's object block.
	f.be.InjectFailure(backend.OpWriteBuffer, 4)
	require.NoError(t, f.orch.Frame(time.Millisecond))

	stats := f.orch.Stats()
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Draws)
}

func TestFrameUniformFailureKeepsDrawing(t *testing.T) {
	tests := []struct {
		name string
		nth  int
	}{
		{"camera", 1},
		{"light", 2},
		{"tonemap parameters", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

			f.be.InjectFailure(backend.OpWriteBuffer, tt.nth)
			require.NoError(t, f.orch.Frame(time.Millisecond))

			stats := f.orch.Stats()
			assert.Equal(t, 1, stats.StaleUniforms)
			assert.Equal(t, 2, stats.Draws)
			assert.Zero(t, stats.Skipped)
			assert.Equal(t, 1, f.be.PresentCount())

			require.NoError(t, f.orch.Frame(time.Millisecond))
			assert.Zero(t, f.orch.Stats().StaleUniforms)
			assert.Equal(t, 2, f.be.PresentCount())
		})
	}
}

func TestCompositeFailureDoesNotStallLaterFrames(t *testing.T) {
	tests := []struct {
		name string
		op   backend.Op
		nth  int
	}{
		{"submit", backend.OpSubmit, 1},
		{"composite end pass", backend.OpEndPass, 2},
		{"composite begin pass", backend.OpBeginPass, 2},
		{"scene end pass", backend.OpEndPass, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.orch.RegisterScene(SceneSponza, f.cube(t, "box")))

			f.be.InjectFailure(tt.op, tt.nth)
			require.ErrorIs(t, f.orch.Frame(time.Millisecond), backend.ErrInjected)
			assert.Zero(t, f.be.PresentCount())

			for i := 1; i <= 4; i++ {
				require.NoError(t, f.orch.Frame(time.Millisecond), "frame %d after the failure", i)
			}
			assert.Equal(t, 4, f.be.PresentCount())
			assert.Empty(t, f.be.Violations())
		})
	}
}

func TestFrameStartFailureAborts(t *testing.T) {
	f := newFixture(t)

	f.be.InjectFailure(backend.OpAcquireBackbuffer, 1)
	err := f.orch.Frame(time.Millisecond)
	require.ErrorIs(t, err, backend.ErrInjected)
	assert.Equal(t, 0, f.be.PresentCount())

	require.NoError(t, f.orch.Frame(time.Millisecond))
	assert.Equal(t, 1, f.be.PresentCount())
}

func TestUIHookRunsInCompositePass(t *testing.T) {
	var frames []uint64
	hook := func(be backend.RendererBackend, params FrameParameters, stats Stats) error {
		frames = append(frames, params.Frame)
		be.Draw(3)
		return errors.New("overlay failed")
	}
	f := newFixture(t, WithUIHook(hook))

	require.NoError(t, f.orch.Frame(time.Millisecond))
	require.NoError(t, f.orch.Frame(time.Millisecond))

	assert.Equal(t, []uint64{1, 2}, frames)
	assert.Equal(t, 2, f.be.PresentCount())
	assert.Empty(t, f.be.Violations())
}

func TestSessionBookkeeping(t *testing.T) {
	f := newFixture(t)

	for range 3 {
		require.NoError(t, f.orch.Frame(250*time.Millisecond))
	}
	p := f.orch.Parameters()
	assert.Equal(t, uint64(3), p.Frame)
	assert.InDelta(t, 0.75, p.Elapsed, 1e-6)
	assert.InDelta(t, 0.25, p.Delta, 1e-6)
	assert.Len(t, f.orch.FPSHistory(), 3)
}

func TestToneMapInputsAreSanitized(t *testing.T) {
	f := newFixture(t)
	f.orch.SetToneMap(ToneMap{
		Exposure:         float32(math.Inf(1)),
		AverageLuminance: -2,
		MaxLuminance:     float32(math.NaN()),
		Burn:             7,
	})
	require.NoError(t, f.orch.Frame(time.Millisecond))

	assert.Equal(t, ToneMap{Exposure: 1, AverageLuminance: MinLuminance, MaxLuminance: 1, Burn: 1}, f.orch.Parameters().ToneMap)
}

func TestToneMapSanitize(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name string
		in   ToneMap
		want ToneMap
	}{
		{"defaults pass through", DefaultToneMap(), DefaultToneMap()},
		{"negative exposure", ToneMap{Exposure: -1, AverageLuminance: 0.5, MaxLuminance: 1}, ToneMap{Exposure: 0, AverageLuminance: 0.5, MaxLuminance: 1}},
		{"zero luminance", ToneMap{Exposure: 2, AverageLuminance: 0, MaxLuminance: 0}, ToneMap{Exposure: 2, AverageLuminance: MinLuminance, MaxLuminance: MinLuminance}},
		{"burn range", ToneMap{Exposure: 1, AverageLuminance: 1, MaxLuminance: 1, Burn: -0.5}, ToneMap{Exposure: 1, AverageLuminance: 1, MaxLuminance: 1, Burn: 0}},
		{"non-finite fall back", ToneMap{Exposure: nan, AverageLuminance: nan, MaxLuminance: nan, Burn: nan}, DefaultToneMap()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Sanitize())
		})
	}
}

func TestSceneFromIndex(t *testing.T) {
	assert.Equal(t, SceneSponza, SceneFromIndex(-1))
	assert.Equal(t, SceneDamagedHelmet, SceneFromIndex(1))
	assert.Equal(t, SceneScifiHelmet, SceneFromIndex(100))

	id, err := ParseScene("damaged-helmet")
	require.NoError(t, err)
	assert.Equal(t, SceneDamagedHelmet, id)
	_, err = ParseScene("atrium")
	assert.ErrorIs(t, err, ErrUnknownScene)
}

func TestReleaseFreesEverything(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	dev, err := device.NewDevice(&device.HeadlessSurface{}, device.WithBackend(be))
	require.NoError(t, err)
	defer dev.Release()

	orch, err := NewOrchestrator(dev, camera.NewCamera(), light.NewLight())
	require.NoError(t, err)
	m, err := mesh.NewDrawableMesh(be, mesh.Cube(1))
	require.NoError(t, err)
	require.NoError(t, orch.RegisterScene(SceneSponza, m))
	require.NoError(t, orch.Frame(time.Millisecond))

	orch.Release()
	orch.Release()
	assert.Equal(t, 0, be.LiveTotal())
	assert.ErrorIs(t, orch.Frame(time.Millisecond), ErrReleased)
}

func TestConstructionFailureLeaksNothing(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	dev, err := device.NewDevice(&device.HeadlessSurface{}, device.WithBackend(be))
	require.NoError(t, err)
	defer dev.Release()

	be.InjectFailure(backend.OpCreateSampler, 2)
	_, err = NewOrchestrator(dev, camera.NewCamera(), light.NewLight())
	require.ErrorIs(t, err, backend.ErrInjected)
	assert.Equal(t, 0, be.LiveTotal())
}
