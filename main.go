package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/soocke/capture-export/app"
	"github.com/soocke/capture-export/config"
	"github.com/soocke/capture-export/recorder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	runFlags := []cli.Flag{
		&cli.StringFlag{Name: "save-dir", Usage: "directory for exported frames"},
		&cli.Float64Flag{Name: "frequency", Usage: "seconds between export cycles"},
		&cli.IntFlag{Name: "limit", Usage: "frames per session, 0 for unlimited"},
		&cli.BoolFlag{Name: "no-mirror", Usage: "skip the mirrored copy"},
		&cli.StringFlag{Name: "format", Usage: "jpeg, png or webp"},
	}
	return &cli.App{
		Name:  "capture-export",
		Usage: "capture the screen and export flipped frames",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: config.DefaultPath(), Usage: "config file"},
			&cli.BoolFlag{Name: "debug", Usage: "debug logging and stats"},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "capture and export frames until interrupted",
				Flags:  runFlags,
				Action: runAction,
			},
			{
				Name:  "record",
				Usage: "assemble exported frames into a video",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "video file, defaults to capture.mp4 in the save dir"},
					&cli.IntFlag{Name: "fps", Usage: "frames per second"},
				},
				Action: recordAction,
			},
			{
				Name:  "init",
				Usage: "write the default config file",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if err := config.DefaultConfig().Save(path); err != nil {
						return err
					}
					fmt.Println(path)
					return nil
				},
			},
		},
	}
}

// loadConfig reads the config file and applies global flags.
func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return cfg, NewLogger(level, cfg.LogFile), nil
}

func runAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("save-dir") {
		cfg.SaveDir = c.String("save-dir")
	}
	if c.IsSet("frequency") {
		cfg.Frequency = c.Float64("frequency")
	}
	if c.IsSet("limit") {
		cfg.ImageLimit = c.Int("limit")
	}
	if c.Bool("no-mirror") {
		cfg.MirrorCopy = false
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	_ = cfg.Validate()

	application, err := app.NewApp(cfg, c.String("config"), logger, nil)
	if err != nil {
		return err
	}
	return application.Run(c.Context)
}

func recordAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts := recorder.Options{
		FrameDir: cfg.SaveDir,
		Ext:      cfg.Encoder().Ext(),
		Output:   c.String("output"),
		FPS:      cfg.VideoFPS,
	}
	if opts.Output == "" {
		opts.Output = filepath.Join(cfg.SaveDir, "capture.mp4")
	}
	if c.IsSet("fps") {
		opts.FPS = c.Int("fps")
	}
	return recorder.Assemble(c.Context, logger, opts)
}
