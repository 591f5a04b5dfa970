package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/capture-export/config"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// topHalfRed grabs a frame whose upper half is red and lower half blue.
func topHalfRed(r image.Rectangle) (*image.RGBA, error) {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		c := color.RGBA{R: 255, A: 255}
		if y >= r.Dy()/2 {
			c = color.RGBA{B: 255, A: 255}
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.SaveDir = filepath.Join(t.TempDir(), "ScreenCapture")
	cfg.Width, cfg.Height = 32, 32
	cfg.Frequency = 0.02
	cfg.ImageLimit = 2
	cfg.MirrorCopy = false
	cfg.CaptureIntervalMS = 2
	return cfg
}

func TestApp_RunExportsFlippedFrames(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewApp(cfg, "", discardLogger, topHalfRed)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	p := a.Container().Pipeline
	require.Eventually(t, func() bool { return p.Stats().Saved == 2 && !p.Running() }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.False(t, a.Container().CaptureSvc.Running())

	entries, err := os.ReadDir(cfg.SaveDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), "_image.jpg"), e.Name())
		data, err := os.ReadFile(filepath.Join(cfg.SaveDir, e.Name()))
		require.NoError(t, err)
		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		// Vertically flipped: blue on top.
		r, _, b, _ := img.At(16, 2).RGBA()
		assert.Greater(t, b, r, "top row should be blue after the vertical flip")
	}
}

func TestApp_ReloadReconfiguresPipeline(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewApp(cfg, "", discardLogger, topHalfRed)
	require.NoError(t, err)
	defer a.Container().Pipeline.Close()

	next := testConfig(t)
	next.SaveDir = cfg.SaveDir
	next.ImageLimit = 1
	a.reload(next)

	attrs := a.statsAttrs()
	require.NotEmpty(t, attrs)
	assert.Equal(t, "export_state", attrs[0].Key)
}

func TestBuildContainer_BadSaveDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg := testConfig(t)
	cfg.SaveDir = filepath.Join(file, "sub")
	_, err := BuildContainer(cfg, discardLogger, topHalfRed)
	assert.Error(t, err)
}
