// Package config loads the renderer settings from a TOML or YAML file and watches the file
// for changes to the values that can be applied to a running renderer.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/frame"
	"github.com/Carmen-Shannon/lumen/engine/logging"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .toml, .yaml nor .yml.
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrInvalid wraps every Validate failure.
	ErrInvalid = errors.New("invalid config")
)

// Format is the encoding of a config file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from the file extension.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Format: the format
//   - error: ErrUnsupportedFormat for unknown extensions
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

type WindowConfig struct {
	Title      string `toml:"title" yaml:"title"`
	Width      uint32 `toml:"width" yaml:"width"`
	Height     uint32 `toml:"height" yaml:"height"`
	Fullscreen bool   `toml:"fullscreen" yaml:"fullscreen"`
	VSync      bool   `toml:"vsync" yaml:"vsync"`
}

type RenderConfig struct {
	Near          float32    `toml:"near" yaml:"near"`
	Far           float32    `toml:"far" yaml:"far"`
	MSAA          uint32     `toml:"msaa" yaml:"msaa"`
	ClearColor    [4]float32 `toml:"clear_color" yaml:"clear_color"`
	StrictShaders bool       `toml:"strict_shaders" yaml:"strict_shaders"`
}

type ToneMapConfig struct {
	Exposure         float32 `toml:"exposure" yaml:"exposure"`
	AverageLuminance float32 `toml:"average_luminance" yaml:"average_luminance"`
	MaxLuminance     float32 `toml:"max_luminance" yaml:"max_luminance"`
	Burn             float32 `toml:"burn" yaml:"burn"`
}

type TextureConfig struct {
	// Workers is the decode pool size, 0 uses GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`
	// MaxSize downscales larger images, 0 keeps the source size.
	MaxSize int `toml:"max_size" yaml:"max_size"`
	// Environment is an optional equirectangular panorama replacing the procedural sky.
	Environment string `toml:"environment" yaml:"environment"`
	// Diffuse lists images shared as diffuse textures by the demo scenes.
	Diffuse []string `toml:"diffuse,omitempty" yaml:"diffuse,omitempty"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Config is the complete renderer configuration.
type Config struct {
	Window   WindowConfig  `toml:"window" yaml:"window"`
	Render   RenderConfig  `toml:"render" yaml:"render"`
	ToneMap  ToneMapConfig `toml:"tonemap" yaml:"tonemap"`
	Textures TextureConfig `toml:"textures" yaml:"textures"`
	Log      LogConfig     `toml:"log" yaml:"log"`
	// Scene is the initially selected scene by name.
	Scene string `toml:"scene" yaml:"scene"`
}

// Default returns an 800x600 vsync window, depth range [0.3, 1000], 4x MSAA, a grey clear
// colour and the default tone map.
func Default() Config {
	tm := frame.DefaultToneMap()
	return Config{
		Window: WindowConfig{
			Title:  "lumen",
			Width:  800,
			Height: 600,
			VSync:  true,
		},
		Render: RenderConfig{
			Near:       0.3,
			Far:        1000,
			MSAA:       4,
			ClearColor: frame.DefaultClearColor.Array(),
		},
		ToneMap: ToneMapConfig{
			Exposure:         tm.Exposure,
			AverageLuminance: tm.AverageLuminance,
			MaxLuminance:     tm.MaxLuminance,
			Burn:             tm.Burn,
		},
		Log:   LogConfig{Level: "info"},
		Scene: frame.SceneSponza.String(),
	}
}

// Load reads the file at path over the defaults and validates the result.
//
// Parameters:
//   - path: a .toml, .yaml or .yml file
//
// Returns:
//   - Config: the loaded configuration
//   - error: read, decode or validation error
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a configuration over the defaults. Unknown keys are rejected.
//
// Parameters:
//   - r: the encoded configuration
//   - format: the encoding
//
// Returns:
//   - Config: the decoded and validated configuration
//   - error: decode or validation error
func Decode(r io.Reader, format Format) (Config, error) {
	cfg := Default()
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg in the given format.
func Encode(w io.Writer, cfg Config, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(cfg)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
}

// Validate rejects zero window sizes, invalid depth ranges, unsupported MSAA counts, unknown scenes
// and unknown log levels.
// Tone-map values are not validated; the renderer clamps them.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be non-zero", c.Window.Width, c.Window.Height))
	}
	if !(c.Render.Near > 0) || !(c.Render.Far > c.Render.Near) || !common.Finite(c.Render.Far) {
		errs = append(errs, fmt.Errorf("depth range [%g, %g] must satisfy 0 < near < far", c.Render.Near, c.Render.Far))
	}
	if c.Render.MSAA != 1 && c.Render.MSAA != 4 {
		errs = append(errs, fmt.Errorf("msaa %d must be 1 or 4", c.Render.MSAA))
	}
	if _, err := frame.ParseScene(c.Scene); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Level != "" && !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Textures.Workers < 0 || c.Textures.MaxSize < 0 {
		errs = append(errs, errors.New("texture workers and max size must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ClearColor returns the render clear colour.
func (c Config) ClearColor() common.Color {
	cc := c.Render.ClearColor
	return common.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

// ToneMapValues returns the tone-map inputs as the renderer takes them.
func (c Config) ToneMapValues() frame.ToneMap {
	return frame.ToneMap{
		Exposure:         c.ToneMap.Exposure,
		AverageLuminance: c.ToneMap.AverageLuminance,
		MaxLuminance:     c.ToneMap.MaxLuminance,
		Burn:             c.ToneMap.Burn,
	}
}

// SceneID resolves Scene. Validate guarantees it succeeds on a loaded config.
func (c Config) SceneID() frame.SceneID {
	id, _ := frame.ParseScene(c.Scene)
	return id
}

// Apply pushes the values that can change at runtime into a running orchestrator:
// the clear colour, the tone map and the selected scene.
//
// Parameters:
//   - o: the orchestrator to update
func (c Config) Apply(o frame.Orchestrator) {
	o.SetClearColor(c.ClearColor())
	o.SetToneMap(c.ToneMapValues())
	o.SelectScene(int(c.SceneID()))
}
