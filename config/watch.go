package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// reloadDebounce coalesces the burst of events editors emit for one save.
const reloadDebounce = 200 * time.Millisecond

// Watch calls fn with the reloaded config each time the file at path is
// written or replaced, until ctx is done. The parent directory is watched so
// atomic-rename saves are seen. Files that fail to parse are logged and skipped.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "config: watcher")
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "config: resolve path")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(err, "config: watch directory")
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("config watch error", "error", err)
			}
		case <-pending:
			pending = nil
			cfg, err := Load(abs)
			if err != nil {
				if logger != nil {
					logger.Error("config reload failed", "path", abs, "error", err)
				}
				continue
			}
			if logger != nil {
				logger.Info("config reloaded", "path", abs)
			}
			fn(cfg)
		}
	}
}
