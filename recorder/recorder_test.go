package recorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_Args(t *testing.T) {
	args := Stream(Options{Output: "/out/video.mp4", FPS: 12}, "/tmp/list.txt").GetArgs()
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f concat")
	assert.Contains(t, joined, "-safe 0")
	assert.Contains(t, joined, "-i /tmp/list.txt")
	assert.Contains(t, joined, "fps=12,pad=")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-pix_fmt yuv420p")
	assert.Contains(t, args, "-y")
	assert.Contains(t, args, "/out/video.mp4")
}

func TestStream_DefaultFPS(t *testing.T) {
	joined := strings.Join(Stream(Options{Output: "v.mp4"}, "l.txt").GetArgs(), " ")
	assert.Contains(t, joined, "fps=30,")
}

func TestFrames_OrderedByModTimeAcrossMonthEnd(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 31, 23, 59, 58, 0, time.UTC)
	names := []string{
		"31-23-59-58-000_image.jpg",
		"31-23-59-59-500_image.jpg",
		"01-00-00-01-000_image.jpg",
	}
	for i, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte{byte(i)}, 0o644))
		mt := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	got, err := Frames(dir, ".jpg")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, n := range names {
		assert.Equal(t, filepath.Join(dir, n), got[i])
	}
}

func TestFrames_SameModTimeFallsBackToName(t *testing.T) {
	dir := t.TempDir()
	mt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, n := range []string{"b_image.png", "a_image.png"} {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		require.NoError(t, os.Chtimes(p, mt, mt))
	}
	got, err := Frames(dir, ".png")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a_image.png"), filepath.Join(dir, "b_image.png")}, got)
}

func TestWriteConcatList(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeConcatList(&b, []string{"/f/one.jpg", "/f/it's.jpg"}, 4))
	assert.Equal(t, "ffconcat version 1.0\n"+
		"file '/f/one.jpg'\nduration 0.250000\n"+
		"file '/f/it'\\''s.jpg'\nduration 0.250000\n"+
		"file '/f/it'\\''s.jpg'\n", b.String())
}

func TestAssemble_NoFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	err := Assemble(context.Background(), nil, Options{FrameDir: dir, Ext: ".jpg", Output: filepath.Join(dir, "v.mp4")})
	assert.True(t, errors.Is(err, ErrNoFrames), "got %v", err)
}
