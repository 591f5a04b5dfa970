package app

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/soocke/capture-export/config"
	"github.com/soocke/capture-export/domain/capture"
	"github.com/soocke/capture-export/domain/export"
	"github.com/soocke/capture-export/storage"
)

// AppContainer assembles the capture source, capture service, storage and
// export pipeline.
type AppContainer struct {
	Config     *config.Config
	Logger     *slog.Logger
	Source     *capture.BufferSource
	CaptureSvc capture.CaptureService
	Sink       *storage.FileSink
	Pipeline   *export.Pipeline
}

// BuildContainer constructs all components. The only side effect is creating
// the save directory. The pipeline subscribes to the source but nothing is
// captured until CaptureSvc starts. A nil grab captures the desktop.
func BuildContainer(cfg *config.Config, logger *slog.Logger, grab capture.Grabber, opts ...export.Option) (*AppContainer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	_ = cfg.Validate()
	c := &AppContainer{Config: cfg, Logger: logger}

	sink, err := storage.NewFileSink(cfg.SaveDir)
	if err != nil {
		return nil, errors.Wrap(err, "app: storage")
	}
	c.Sink = sink
	c.Source = capture.NewBufferSource(cfg.Width, cfg.Height, cfg.Flip(), logger)
	c.CaptureSvc = capture.NewCaptureService(logger, c.Source, cfg.CaptureInterval(), grab)
	c.Pipeline = export.NewPipeline(logger, c.Source, cfg.Encoder(), sink, cfg.ExportOptions(), opts...)
	return c, nil
}
