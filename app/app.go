package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/capture-export/config"
	"github.com/soocke/capture-export/debug"
	"github.com/soocke/capture-export/domain/capture"
	"github.com/soocke/capture-export/domain/export"
)

const statsInterval = 5 * time.Second

// App runs screen capture and frame export until its context ends.
type App struct {
	container *AppContainer
	cfgPath   string
	logger    *slog.Logger
}

// NewApp builds the components for cfg. cfgPath, when set, is watched for
// changes to the export settings.
func NewApp(cfg *config.Config, cfgPath string, logger *slog.Logger, grab capture.Grabber, opts ...export.Option) (*App, error) {
	c, err := BuildContainer(cfg, logger, grab, opts...)
	if err != nil {
		return nil, err
	}
	return &App{container: c, cfgPath: cfgPath, logger: logger}, nil
}

// Container exposes the assembled components.
func (a *App) Container() *AppContainer { return a.container }

// Run starts capturing and blocks until ctx is done, then stops the pipeline
// and the capture service in that order.
func (a *App) Run(ctx context.Context) error {
	c := a.container
	g, ctx := errgroup.WithContext(ctx)

	a.logger.Info("capture export starting",
		"save_dir", c.Sink.Dir(),
		"size", [2]int{c.Config.Width, c.Config.Height},
		"format", c.Config.Format,
	)
	c.CaptureSvc.Start()

	if c.Config.Debug {
		debug.StartStatsLogger(ctx, statsInterval, a.logger, a.statsAttrs)
	}
	if a.cfgPath != "" {
		g.Go(func() error {
			if err := config.Watch(ctx, a.cfgPath, a.logger, a.reload); err != nil {
				a.logger.Warn("config watch disabled", "path", a.cfgPath, "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		saved := c.Pipeline.Stats().Saved
		c.Pipeline.Close()
		c.CaptureSvc.Stop()
		a.logger.Info("capture export stopped", "saved", saved)
		return nil
	})
	return g.Wait()
}

// reload applies export settings from a changed config file. Capture size,
// format and directory changes need a restart.
func (a *App) reload(cfg *config.Config) {
	a.container.Pipeline.Reconfigure(cfg.ExportOptions())
	old := a.container.Config
	if cfg.Width != old.Width || cfg.Height != old.Height || cfg.SaveDir != old.SaveDir || cfg.Format != old.Format {
		a.logger.Warn("config change needs restart", "fields", "width/height/save_dir/format")
	}
}

func (a *App) statsAttrs() []slog.Attr {
	ps := a.container.Pipeline.Stats()
	cs := a.container.CaptureSvc.Stats()
	return []slog.Attr{
		slog.String("export_state", ps.State.String()),
		slog.Int64("saved", ps.Saved),
		slog.Int64("failed", ps.Failed),
		slog.Uint64("captures", cs.Captures),
		slog.Uint64("skipped", cs.Skipped),
		slog.Duration("avg_capture", cs.AvgCapture),
	}
}
