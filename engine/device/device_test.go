package device

import (
	"errors"
	"io"
	"testing"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	m.Run()
}

func TestNegotiateDisplayMode(t *testing.T) {
	modes := []common.DisplayMode{
		{Width: 800, Height: 600, RefreshNumerator: 60, RefreshDenominator: 1},
		{Width: 1024, Height: 768, RefreshNumerator: 60, RefreshDenominator: 1},
		{Width: 1024, Height: 768, RefreshNumerator: 144, RefreshDenominator: 1},
	}

	tests := []struct {
		name      string
		width     uint32
		height    uint32
		wantNum   uint32
		wantDen   uint32
		wantExact bool
	}{
		{"single match", 800, 600, 60, 1, true},
		{"last match wins", 1024, 768, 144, 1, true},
		{"no match falls back", 1280, 720, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, exact := NegotiateDisplayMode(modes, tt.width, tt.height)
			assert.Equal(t, tt.wantExact, exact)
			assert.Equal(t, tt.wantNum, mode.RefreshNumerator)
			assert.Equal(t, tt.wantDen, mode.RefreshDenominator)
			assert.Equal(t, tt.width, mode.Width)
		})
	}
}

func TestNewDeviceHeadless(t *testing.T) {
	b := backend.NewHeadlessRendererBackend(backend.WithAdapterInfo(backend.AdapterInfo{Name: "Test GPU", DedicatedMemoryMB: 2048}))
	src := &HeadlessSurface{}

	d, err := NewDevice(src, WithBackend(b), WithSize(800, 600), WithVSync(false))
	require.NoError(t, err)
	defer d.Release()

	assert.Equal(t, "Test GPU", d.GPUName())
	assert.Equal(t, uint64(2048), d.GPUMemoryMB())
	assert.Equal(t, uint32(4), d.SampleCount())

	sc := d.Swapchain()
	assert.Equal(t, uint32(800), sc.Width)
	assert.Equal(t, uint32(600), sc.Height)
	assert.False(t, sc.VSync)
	assert.Equal(t, uint32(0), sc.RefreshNumerator)
	assert.Equal(t, uint32(1), sc.RefreshDenominator)

	w, h := b.SurfaceSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)

	world := d.WorldMatrix()
	assert.Equal(t, float32(1), world[0])
	assert.Equal(t, float32(1), world[15])
}

func TestNewDeviceFullscreen(t *testing.T) {
	src := &HeadlessSurface{Modes: []common.DisplayMode{{Width: 800, Height: 600, RefreshNumerator: 60000, RefreshDenominator: 1001}}}
	d, err := NewDevice(src, WithBackend(backend.NewHeadlessRendererBackend()), WithFullscreen(true))
	require.NoError(t, err)

	assert.True(t, src.Fullscreen)
	assert.Equal(t, uint32(60000), d.Swapchain().RefreshNumerator)

	d.Release()
	assert.False(t, src.Fullscreen)
}

func TestNewDeviceErrors(t *testing.T) {
	tests := []struct {
		name      string
		options   func(b backend.HeadlessRendererBackend) []DeviceBuilderOption
		wantStage string
	}{
		{
			name: "zero size",
			options: func(b backend.HeadlessRendererBackend) []DeviceBuilderOption {
				return []DeviceBuilderOption{WithBackend(b), WithSize(0, 600)}
			},
			wantStage: StageInvalidConfig,
		},
		{
			name: "inverted depth range",
			options: func(b backend.HeadlessRendererBackend) []DeviceBuilderOption {
				return []DeviceBuilderOption{WithBackend(b), WithDepthRange(10, 1)}
			},
			wantStage: StageInvalidConfig,
		},
		{
			name: "unsupported msaa",
			options: func(b backend.HeadlessRendererBackend) []DeviceBuilderOption {
				return []DeviceBuilderOption{WithBackend(b), WithMSAA(8)}
			},
			wantStage: StageInvalidConfig,
		},
		{
			name: "swapchain configuration",
			options: func(b backend.HeadlessRendererBackend) []DeviceBuilderOption {
				b.InjectFailure(backend.OpConfigureSurface, 1)
				return []DeviceBuilderOption{WithBackend(b)}
			},
			wantStage: StageSwapchain,
		},
		{
			name: "no native window",
			options: func(b backend.HeadlessRendererBackend) []DeviceBuilderOption {
				return nil
			},
			wantStage: StageAdapter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := backend.NewHeadlessRendererBackend()
			_, err := NewDevice(&HeadlessSurface{}, tt.options(b)...)
			require.Error(t, err)

			var initErr *InitError
			require.True(t, errors.As(err, &initErr))
			assert.Equal(t, tt.wantStage, initErr.Stage)
			assert.Contains(t, err.Error(), tt.wantStage)
		})
	}
}

func TestInitErrorUnwraps(t *testing.T) {
	b := backend.NewHeadlessRendererBackend()
	b.InjectFailure(backend.OpConfigureSurface, 1)

	_, err := NewDevice(&HeadlessSurface{}, WithBackend(b))
	assert.ErrorIs(t, err, backend.ErrInjected)
}

func TestResizeSwapchain(t *testing.T) {
	b := backend.NewHeadlessRendererBackend()
	d, err := NewDevice(&HeadlessSurface{}, WithBackend(b))
	require.NoError(t, err)

	before := d.ProjectionMatrix()
	require.NoError(t, d.ResizeSwapchain(1280, 720))
	after := d.ProjectionMatrix()

	assert.Equal(t, uint32(1280), d.Swapchain().Width)
	assert.NotEqual(t, before[0], after[0], "aspect change must update the projection")

	require.NoError(t, d.ResizeSwapchain(0, 720))
	assert.Equal(t, uint32(1280), d.Swapchain().Width, "zero size is ignored")

	b.InjectFailure(backend.OpConfigureSurface, 1)
	require.Error(t, d.ResizeSwapchain(640, 480))
	assert.Equal(t, uint32(1280), d.Swapchain().Width, "failed resize keeps the previous size")
	assert.Equal(t, after, d.ProjectionMatrix())
}
