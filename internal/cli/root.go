// Package cli implements the spaceeye command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"spaceeye/internal/spaceeye"
)

// newDisplayService is swapped out in tests.
var newDisplayService = spaceeye.NewPlatformDisplayService

type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	displayID     uint64
	scaling       string
	background    string
	allowClipping bool
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "spaceeye <wallpaper>",
		Short: "Set satellite imagery as the desktop wallpaper",
		Long: `spaceeye keeps a cached catalog of live satellite imagery and sets
images from it, or any local image, as the wallpaper of a display.

With a single argument it sets that image file on the selected display.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			return env.run(func() error {
				return env.svc.ApplyFile(cmd.Context(), env.cfg.DisplayID(), args[0], env.cfg.RenderOptions())
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default <user config dir>/spaceeye/config.yaml if present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.Uint64VarP(&a.displayID, "display", "d", 1, "display id to target")
	pf.StringVar(&a.scaling, "scaling", "", "scaling mode: fit, stretch or center")
	pf.StringVar(&a.background, "background", "", "fill color as #RRGGBB or #RRGGBBAA")
	pf.BoolVar(&a.allowClipping, "allow-clipping", true, "allow the image to be clipped to fill the display")

	root.AddCommand(
		a.displaysCmd(),
		a.catalogCmd(),
		a.imagesCmd(),
		a.updateCmd(),
		a.watchCmd(),
	)
	return root
}

type env struct {
	cfg         spaceeye.Config
	cfgPath     string
	logger      *slog.Logger
	svc         *spaceeye.Service
	registry    *prometheus.Registry
	metricsFile string
}

// open loads configuration, applies command line overrides and builds the
// service. The caller must finish with env.run.
func (a *app) open(cmd *cobra.Command) (*env, error) {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(spaceeye.DefaultConfigPath()); err == nil {
			path = spaceeye.DefaultConfigPath()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	cfg, err := spaceeye.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := a.applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}

	logger := spaceeye.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc, err := spaceeye.NewService(cfg, newDisplayService(),
		spaceeye.WithLogger(logger),
		spaceeye.WithMetrics(spaceeye.NewMetrics(reg)),
	)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:         cfg,
		cfgPath:     path,
		logger:      logger,
		svc:         svc,
		registry:    reg,
		metricsFile: a.metricsFile,
	}, nil
}

// run calls fn, then closes the service and writes metrics.
func (e *env) run(fn func() error) error {
	err := fn()
	if cerr := e.svc.Close(); err == nil {
		err = cerr
	}
	if e.metricsFile != "" {
		if merr := spaceeye.WriteMetrics(e.metricsFile, e.registry); merr != nil {
			e.logger.Warn("write metrics", "path", e.metricsFile, "error", merr)
		}
	}
	return err
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *spaceeye.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("display") {
		id := a.displayID
		cfg.Display.ID = &id
	}
	if flags.Changed("scaling") {
		m, err := spaceeye.ParseScalingMode(a.scaling)
		if err != nil {
			return err
		}
		cfg.Render.Scaling = m
	}
	if flags.Changed("background") {
		c, err := spaceeye.ParseColor(a.background)
		if err != nil {
			return err
		}
		cfg.Render.Background = &c
	}
	if flags.Changed("allow-clipping") {
		v := a.allowClipping
		cfg.Render.AllowClipping = &v
	}
	return nil
}

func (a *app) watchCmd() *cobra.Command {
	var (
		every       time.Duration
		satelliteID uint64
		viewID      uint64
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the wallpaper updated from the catalog",
		Long: `Run update now and then on every interval until interrupted.
The config file is reloaded when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			current := func() spaceeye.Config { return env.cfg }
			if env.cfgPath != "" {
				w, err := spaceeye.WatchConfig(env.cfgPath, env.cfg, env.logger)
				if err != nil {
					return env.run(func() error { return err })
				}
				defer w.Close()
				current = w.Current
			}

			interval := env.cfg.WatchEvery()
			if cmd.Flags().Changed("every") {
				interval = every
			}
			if interval <= 0 {
				return env.run(func() error { return fmt.Errorf("--every must be positive, got %s", interval) })
			}

			next := func() spaceeye.UpdateRequest {
				cfg := current()
				if err := a.applyFlags(cmd, &cfg); err != nil {
					env.logger.Warn("ignoring flags", "error", err)
				}
				req := cfg.UpdateRequest()
				if cmd.Flags().Changed("satellite") {
					req.SatelliteID = satelliteID
				}
				if cmd.Flags().Changed("view") {
					req.ViewID = viewID
				}
				return req
			}
			env.logger.Info("watching", "every", interval)
			return env.run(func() error { return env.svc.Watch(cmd.Context(), interval, next) })
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "update interval (default watch.every or 10m)")
	cmd.Flags().Uint64Var(&satelliteID, "satellite", 0, "satellite id (default first in catalog)")
	cmd.Flags().Uint64Var(&viewID, "view", 0, "view id (default first of the satellite)")
	return cmd
}
