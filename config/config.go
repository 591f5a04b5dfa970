package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/soocke/capture-export/domain/export"
	"github.com/soocke/capture-export/domain/transform"
	"github.com/soocke/capture-export/images"
)

// AppName names the application directory under the XDG data home.
const AppName = "capture-export"

// Config holds runtime configuration for capture and export behaviour.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug   bool   `json:"debug"`
	LogFile string `json:"log_file"`

	// Export cycle
	Frequency  float64 `json:"frequency"` // seconds between cycle starts
	MirrorCopy bool    `json:"mirror_copy"`
	ImageLimit int     `json:"image_limit"` // 0 = unlimited
	AutoStart  bool    `json:"auto_start"`

	// Output
	SaveDir       string `json:"save_dir"`
	Format        string `json:"format"`
	Quality       int    `json:"quality"`
	MaxExportSize int    `json:"max_export_size"` // 0 keeps the capture size

	// Capture source
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	SourceFlip        string `json:"source_flip"`
	CaptureIntervalMS int    `json:"capture_interval_ms"`

	// Video assembly
	VideoFPS int `json:"video_fps"`
}

// DefaultSaveDir is the ScreenCapture folder inside the persistent data directory.
func DefaultSaveDir() string {
	return filepath.Join(xdg.DataHome, AppName, "ScreenCapture")
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		Frequency:         1,
		MirrorCopy:        true,
		ImageLimit:        200,
		AutoStart:         true,
		SaveDir:           DefaultSaveDir(),
		Format:            string(images.FormatJPEG),
		Quality:           images.DefaultQuality,
		MaxExportSize:     0,
		Width:             1024,
		Height:            1024,
		SourceFlip:        transform.ModeNone.String(),
		CaptureIntervalMS: 33,
		VideoFPS:          30,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.Frequency < 0 {
		c.Frequency = 1
	}
	if c.ImageLimit < 0 {
		c.ImageLimit = 0
	}
	if c.SaveDir == "" {
		c.SaveDir = DefaultSaveDir()
	}
	if _, err := images.ParseFormat(c.Format); err != nil {
		c.Format = string(images.FormatJPEG)
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = images.DefaultQuality
	}
	if c.MaxExportSize < 0 {
		c.MaxExportSize = 0
	}
	if c.Width <= 0 {
		c.Width = 1024
	}
	if c.Height <= 0 {
		c.Height = 1024
	}
	if _, err := transform.ParseFlipMode(c.SourceFlip); err != nil {
		c.SourceFlip = transform.ModeNone.String()
	}
	if c.CaptureIntervalMS <= 0 {
		c.CaptureIntervalMS = 33
	}
	if c.VideoFPS <= 0 {
		c.VideoFPS = 30
	}
	return nil
}

// Interval converts Frequency to a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Frequency * float64(time.Second))
}

// ExportOptions derives pipeline options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		Interval:   c.Interval(),
		MirrorCopy: c.MirrorCopy,
		ImageLimit: c.ImageLimit,
		AutoStart:  c.AutoStart,
	}
}

// Encoder derives the frame encoder. Call after Validate.
func (c *Config) Encoder() images.Encoder {
	f, _ := images.ParseFormat(c.Format)
	return images.Encoder{Format: f, Quality: c.Quality, MaxSize: c.MaxExportSize}
}

// Flip returns the source flip mode. Call after Validate.
func (c *Config) Flip() transform.FlipMode {
	m, _ := transform.ParseFlipMode(c.SourceFlip)
	return m
}

// CaptureInterval converts CaptureIntervalMS to a duration.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.CaptureIntervalMS) * time.Millisecond
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// DefaultPath is the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}
