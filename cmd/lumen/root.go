package main

import (
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine"
	"github.com/Carmen-Shannon/lumen/engine/config"
	"github.com/Carmen-Shannon/lumen/engine/frame"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	headless   bool
	frames     int
	scene      string
	logLevel   string
	watch      bool
	frameLimit float64
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "lumen",
		Short:        "HDR forward renderer with tone-mapped present",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			return run(cmd, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (.toml, .yaml or .yml)")
	flags.BoolVar(&opts.headless, "headless", false, "render without a window")
	flags.IntVarP(&opts.frames, "frames", "n", 60, "frames to render in headless mode")
	flags.StringVar(&opts.scene, "scene", "", "initial scene: sponza, damaged-helmet or scifi-helmet")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&opts.watch, "watch", true, "reload the configuration file when it changes")
	flags.Float64Var(&opts.frameLimit, "fps", 0, "render frame rate cap, 0 uncapped")
	return cmd
}

// resolve loads the configuration file over the defaults and applies the flag overrides.
func (o *rootOptions) resolve() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if o.scene != "" {
		if _, err := frame.ParseScene(o.scene); err != nil {
			return config.Config{}, err
		}
		cfg.Scene = o.scene
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.headless && o.frames <= 0 {
		return config.Config{}, fmt.Errorf("--frames must be positive, got %d", o.frames)
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, cfg config.Config, o *rootOptions) error {
	var options []engine.EngineBuilderOption
	if o.headless {
		options = append(options, engine.WithHeadless(nil, o.frames))
	}
	if o.watch && o.configPath != "" {
		options = append(options, engine.WithConfigWatch(o.configPath))
	}
	if o.frameLimit > 0 {
		options = append(options, engine.WithRenderFrameLimit(o.frameLimit))
	}

	e, err := engine.NewEngine(cfg, options...)
	if err != nil {
		return err
	}
	defer e.Release()

	if err := e.Run(); err != nil {
		return err
	}

	stats := e.Orchestrator().Stats()
	dev := e.Device()
	fmt.Fprintf(cmd.OutOrStdout(), "%d frames, scene %s, %dx%d, %d draws, gpu %q (%d MB)\n",
		stats.Frame, stats.Scene, stats.Size.Width, stats.Size.Height, stats.Draws, dev.GPUName(), dev.GPUMemoryMB())
	return nil
}
