// Package recorder assembles saved frames into a video with ffmpeg.
package recorder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/multierr"
)

// ErrNoFrames is returned when the frame directory holds no matching files.
var ErrNoFrames = errors.New("recorder: no frames to assemble")

// Options describes one assembly job.
type Options struct {
	FrameDir string // directory holding saved frames
	Ext      string // frame extension including the dot, e.g. ".jpg"
	Output   string // video path; the container follows its extension
	FPS      int
	// Stderr receives ffmpeg diagnostics. Nil discards them.
	Stderr io.Writer
}

func (o Options) fps() int {
	if o.FPS <= 0 {
		return 30
	}
	return o.FPS
}

// Frames lists the frames in dir with extension ext in capture order.
// Names begin with the day of the month, so a capture crossing a month end
// does not sort by name; the file modification time decides, the name breaks
// ties.
func Frames(dir, ext string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return nil, errors.Wrap(err, "recorder: list frames")
	}
	type frame struct {
		path string
		mod  time.Time
	}
	frames := make([]frame, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, errors.Wrap(err, "recorder: stat frame")
		}
		if fi.IsDir() {
			continue
		}
		frames = append(frames, frame{path: m, mod: fi.ModTime()})
	}
	sort.Slice(frames, func(i, j int) bool {
		if !frames[i].mod.Equal(frames[j].mod) {
			return frames[i].mod.Before(frames[j].mod)
		}
		return frames[i].path < frames[j].path
	})
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.path
	}
	return out, nil
}

// writeConcatList writes an ffmpeg concat demuxer script showing each frame
// for 1/fps seconds. The last frame is listed twice or its duration is lost.
func writeConcatList(w io.Writer, frames []string, fps int) error {
	dur := strconv.FormatFloat(1/float64(fps), 'f', 6, 64)
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, f := range frames {
		fmt.Fprintf(&b, "file '%s'\nduration %s\n", quoteConcat(f), dur)
	}
	if len(frames) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", quoteConcat(frames[len(frames)-1]))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quoteConcat(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return strings.ReplaceAll(filepath.ToSlash(path), "'", `'\''`)
}

// Stream builds the ffmpeg invocation reading frames from the concat script
// at list.
func Stream(o Options, list string) *ffmpeg.Stream {
	return ffmpeg.Input(list, ffmpeg.KwArgs{
		"f":    "concat",
		"safe": "0",
	}).Output(o.Output, ffmpeg.KwArgs{
		"c:v":     "libx264",
		"pix_fmt": "yuv420p",
		// libx264 needs even dimensions.
		"vf": "fps=" + strconv.Itoa(o.fps()) + ",pad=ceil(iw/2)*2:ceil(ih/2)*2",
	}).OverWriteOutput()
}

// Assemble encodes every frame in o.FrameDir into o.Output and blocks until
// ffmpeg exits or ctx is done.
func Assemble(ctx context.Context, logger *slog.Logger, o Options) (err error) {
	frames, err := Frames(o.FrameDir, o.Ext)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return errors.Wrapf(ErrNoFrames, "%s*%s", o.FrameDir+string(os.PathSeparator), o.Ext)
	}
	if dir := filepath.Dir(o.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "recorder: output directory")
		}
	}

	list, err := os.CreateTemp("", "capture-frames-*.txt")
	if err != nil {
		return errors.Wrap(err, "recorder: concat list")
	}
	defer func() { err = multierr.Append(err, os.Remove(list.Name())) }()
	if err := writeConcatList(list, frames, o.fps()); err != nil {
		return multierr.Append(errors.Wrap(err, "recorder: write concat list"), list.Close())
	}
	if err := list.Close(); err != nil {
		return errors.Wrap(err, "recorder: close concat list")
	}

	s := Stream(o, list.Name())
	s.Context = ctx
	cmd := s.Compile()
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if o.Stderr != nil {
		cmd.Stderr = o.Stderr
	}
	if logger != nil {
		logger.Info("assembling video", "frames", len(frames), "fps", o.fps(), "output", o.Output)
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "recorder: ffmpeg")
	}
	return nil
}
