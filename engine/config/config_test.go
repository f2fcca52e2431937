package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/lumen/engine/frame"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.True(t, cfg.Window.VSync)
	assert.False(t, cfg.Window.Fullscreen)
	assert.Equal(t, float32(0.3), cfg.Render.Near)
	assert.Equal(t, float32(1000), cfg.Render.Far)
	assert.Equal(t, frame.DefaultClearColor, cfg.ClearColor())
	assert.Equal(t, frame.DefaultToneMap(), cfg.ToneMapValues())
	assert.Equal(t, frame.SceneSponza, cfg.SceneID())
}

func TestDecodeTOML(t *testing.T) {
	src := `
scene = "scifi-helmet"

[window]
width = 1024
height = 768
fullscreen = true

[tonemap]
exposure = 2.5
burn = 0.25
`
	cfg, err := Decode(strings.NewReader(src), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, uint32(1024), cfg.Window.Width)
	assert.True(t, cfg.Window.Fullscreen)
	assert.True(t, cfg.Window.VSync, "unset keys keep their defaults")
	assert.Equal(t, float32(2.5), cfg.ToneMap.Exposure)
	assert.Equal(t, float32(0.5), cfg.ToneMap.AverageLuminance)
	assert.Equal(t, float32(0.25), cfg.ToneMap.Burn)
	assert.Equal(t, frame.SceneScifiHelmet, cfg.SceneID())
}

func TestDecodeYAML(t *testing.T) {
	src := `
render:
  msaa: 1
  clear_color: [0, 0, 0, 1]
textures:
  workers: 2
`
	cfg, err := Decode(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), cfg.Render.MSAA)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, cfg.Render.ClearColor)
	assert.Equal(t, 2, cfg.Textures.Workers)
	assert.Equal(t, float32(0.3), cfg.Render.Near)
}

func TestDecodeEmptyYAML(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		format Format
	}{
		{"zero width", "[window]\nwidth = 0\n", FormatTOML},
		{"inverted depth", "render:\n  near: 10\n  far: 1\n", FormatYAML},
		{"zero near", "[render]\nnear = 0.0\n", FormatTOML},
		{"bad msaa", "[render]\nmsaa = 8\n", FormatTOML},
		{"unknown scene", "scene: atrium\n", FormatYAML},
		{"unknown toml key", "[window]\ncolour = 1\n", FormatTOML},
		{"unknown yaml key", "window:\n  colour: 1\n", FormatYAML},
		{"negative workers", "textures:\n  workers: -1\n", FormatYAML},
		{"unknown log level", "[log]\nlevel = \"loud\"\n", FormatTOML},
		{"garbage", "{{{", FormatTOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestValidateWrapsErrInvalid(t *testing.T) {
	cfg := Default()
	cfg.Window.Height = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.toml": FormatTOML, "b.YAML": FormatYAML, "c.yml": FormatYAML} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatOf("config.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 1280
	cfg.Scene = frame.SceneDamagedHelmet.String()

	for _, format := range []Format{FormatTOML, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, cfg, format))
			got, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 640\nheight = 480\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(640), cfg.Window.Width)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scene: sponza\n"), 0o644))

	changes := make(chan Config, 4)
	w, err := NewWatcher(path, func(c Config) { changes <- c }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	// An invalid version is dropped.
	require.NoError(t, os.WriteFile(path, []byte("scene: atrium\n"), 0o644))
	select {
	case c := <-changes:
		t.Fatalf("unexpected reload: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("scene: damaged-helmet\ntonemap:\n  exposure: 3\n"), 0o644))
	select {
	case c := <-changes:
		assert.Equal(t, frame.SceneDamagedHelmet, c.SceneID())
		assert.Equal(t, float32(3), c.ToneMap.Exposure)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not delivered")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumen.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	changes := make(chan Config, 1)
	w, err := NewWatcher(path, func(c Config) { changes <- c }, WithDebounce(0))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0o644))
	select {
	case <-changes:
		t.Fatal("sibling file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
