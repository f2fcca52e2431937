package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, encodePNG(t, w, h, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), 0o644))
	return path
}

func TestDecode(t *testing.T) {
	data, err := Decode(bytes.NewReader(encodePNG(t, 3, 2, color.NRGBA{R: 255, G: 128, B: 0, A: 255})))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, uint32(4), data.BytesPerPixel)
	require.Len(t, data.Pixels, 3*2*4)
	assert.Equal(t, []byte{255, 128, 0, 255}, data.Pixels[:4])
}

func TestDecodeMaxSize(t *testing.T) {
	data, err := Decode(bytes.NewReader(encodePNG(t, 64, 16, color.NRGBA{A: 255})), WithMaxSize(32))
	require.NoError(t, err)

	assert.Equal(t, uint32(32), data.Width)
	assert.Equal(t, uint32(8), data.Height)
	assert.Len(t, data.Pixels, 32*8*4)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 4, 4)
	b := writePNG(t, dir, "b.png", 2, 8)

	out, err := LoadAll([]string{a, b, a}, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, a, out[0].Path)
	assert.Equal(t, uint32(4), out[0].Data.Width)
	assert.Equal(t, uint32(8), out[1].Data.Height)
	assert.Equal(t, out[0].Data, out[2].Data)
}

func TestLoadAllReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png", 1, 1)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))
	missing := filepath.Join(dir, "missing.png")

	out, err := LoadAll([]string{good, bad, missing}, 0)
	require.Error(t, err)
	require.Len(t, out, 3)

	assert.NoError(t, out[0].Err)
	assert.Error(t, out[1].Err)
	assert.ErrorIs(t, out[2].Err, os.ErrNotExist)
}

func TestLoadAllStopsWorkers(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", 2, 2)
	before := runtime.NumGoroutine()

	_, err := LoadAll([]string{path}, 1)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadAllEmpty(t *testing.T) {
	out, err := LoadAll(nil, 4)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func rgba(w, h uint32) common.TextureStagingData {
	return common.TextureStagingData{Pixels: make([]byte, w*h*4), Width: w, Height: h, BytesPerPixel: 4}
}

func TestCacheRefCounting(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	cache, err := NewCache(be)
	require.NoError(t, err)

	// Fallback texture + view and the sampler.
	assert.Equal(t, 1, be.Live(backend.KindTexture))
	assert.Equal(t, 1, be.Live(backend.KindSampler))
	assert.NotNil(t, cache.Fallback())
	assert.NotNil(t, cache.Sampler())

	v1, err := cache.Acquire("albedo.png", rgba(2, 2), backend.TextureFormatRGBA8Unorm)
	require.NoError(t, err)
	v2, err := cache.Acquire("albedo.png", rgba(2, 2), backend.TextureFormatRGBA8Unorm)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	assert.Equal(t, 2, cache.RefCount("albedo.png"))
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 2, be.Live(backend.KindTexture))

	v3, ok := cache.Retain("albedo.png")
	assert.True(t, ok)
	assert.Same(t, v1, v3)
	_, ok = cache.Retain("other.png")
	assert.False(t, ok)

	require.NoError(t, cache.Release("albedo.png"))
	require.NoError(t, cache.Release("albedo.png"))
	assert.Equal(t, 1, cache.RefCount("albedo.png"))
	require.NoError(t, cache.Release("albedo.png"))
	assert.Equal(t, 0, cache.RefCount("albedo.png"))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 1, be.Live(backend.KindTexture))

	assert.ErrorIs(t, cache.Release("albedo.png"), ErrUnknownKey)

	cache.Close()
	assert.Equal(t, 0, be.LiveTotal())
}

func TestCacheRejectsBadData(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	cache, err := NewCache(be)
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.Acquire("empty", common.TextureStagingData{BytesPerPixel: 4}, backend.TextureFormatRGBA8Unorm)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = cache.Acquire("mismatch", rgba(1, 1), backend.TextureFormatRGBA16Float)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheUploadFailureLeaksNothing(t *testing.T) {
	be := backend.NewHeadlessRendererBackend()
	cache, err := NewCache(be)
	require.NoError(t, err)
	baseline := be.LiveTotal()

	be.InjectFailure(backend.OpWriteTexture, 1)
	_, err = cache.Acquire("broken", rgba(1, 1), backend.TextureFormatRGBA8Unorm)
	assert.ErrorIs(t, err, backend.ErrInjected)
	assert.Equal(t, baseline, be.LiveTotal())
	assert.Equal(t, 0, cache.RefCount("broken"))

	cache.Close()
}

func TestEnvironment(t *testing.T) {
	data := Environment(16, 8, DefaultGradient)

	assert.Equal(t, uint32(16), data.Width)
	assert.Equal(t, uint32(8), data.Height)
	assert.Equal(t, uint32(8), data.BytesPerPixel)
	assert.Len(t, data.Pixels, 16*8*8)

	be := backend.NewHeadlessRendererBackend()
	cache, err := NewCache(be)
	require.NoError(t, err)
	defer cache.Close()
	_, err = cache.Acquire(EnvironmentKey, data, backend.TextureFormatRGBA16Float)
	assert.NoError(t, err)
}

func TestEnvironmentClampsSize(t *testing.T) {
	data := Environment(0, 0, DefaultGradient)
	assert.Equal(t, uint32(1), data.Width)
	assert.Equal(t, uint32(2), data.Height)
}
