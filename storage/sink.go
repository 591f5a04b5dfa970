// Package storage persists encoded frames.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrExist reports that the target name is already taken. Callers pick a new name.
var ErrExist = os.ErrExist

// Sink stores one encoded frame under name. A write either fully succeeds or
// returns an error; readers never observe a partial file.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// FileSink writes frames as files in a single directory.
type FileSink struct {
	dir  string
	perm os.FileMode
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New("storage: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "storage: create directory")
	}
	return &FileSink{dir: dir, perm: 0o644}, nil
}

// Dir returns the sink directory.
func (s *FileSink) Dir() string { return s.dir }

// Write stages data in a hidden temp file, syncs it, then links it to name.
// The link fails with ErrExist when name is taken, which gives exclusive
// create semantics without a window where the final file is half written.
func (s *FileSink) Write(ctx context.Context, name string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.Errorf("storage: invalid name %q", name)
	}
	final := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".partial-*")
	if err != nil {
		return errors.Wrap(err, "storage: create temp")
	}
	tmpName := tmp.Name()
	defer func() {
		err = multierr.Append(err, ignoreNotExist(os.Remove(tmpName)))
	}()

	if _, werr := tmp.Write(data); werr != nil {
		return multierr.Combine(errors.Wrapf(werr, "storage: write %s", name), tmp.Close())
	}
	if serr := tmp.Sync(); serr != nil {
		return multierr.Combine(errors.Wrapf(serr, "storage: sync %s", name), tmp.Close())
	}
	if cerr := tmp.Close(); cerr != nil {
		return errors.Wrapf(cerr, "storage: close %s", name)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return errors.Wrapf(err, "storage: chmod %s", name)
	}
	if err := os.Link(tmpName, final); err != nil {
		return errors.Wrapf(err, "storage: publish %s", name)
	}
	return nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
