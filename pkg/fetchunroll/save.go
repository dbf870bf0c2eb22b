// SPDX-License-Identifier: MPL-2.0

package fetchunroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/invowk/fetchunroll/pkg/unroll"
)

type (
	// SaveConfig holds the options for Save.
	SaveConfig struct {
		// CreateDestPath creates missing parent directories of the target.
		CreateDestPath bool
		// Overwrite allows replacing an existing file.
		Overwrite bool
		// FixInvalidDest replaces a directory found at the target path.
		FixInvalidDest bool
		Logger         *log.Logger
	}

	// SaveOption configures Save.
	SaveOption func(*SaveConfig)

	// writeTracker records write failures so they can be told apart from
	// failures of the source.
	writeTracker struct {
		w   io.Writer
		err error
	}

	// savePlan records the filesystem changes Save makes once the source
	// opened.
	savePlan struct {
		replaceDir bool
		createDir  bool
	}

	// contextReader stops reading once ctx is done.
	contextReader struct {
		ctx context.Context
		r   io.Reader
	}
)

// DefaultSaveConfig returns the default Save options: parents created,
// overwrite enabled, a directory in the way replaced.
func DefaultSaveConfig() SaveConfig {
	return SaveConfig{
		CreateDestPath: true,
		Overwrite:      true,
		FixInvalidDest: true,
	}
}

// WithCreateDestPath sets whether missing parent directories are created.
func WithCreateDestPath(create bool) SaveOption {
	return func(c *SaveConfig) { c.CreateDestPath = create }
}

// WithOverwrite sets whether an existing file may be replaced.
func WithOverwrite(overwrite bool) SaveOption {
	return func(c *SaveConfig) { c.Overwrite = overwrite }
}

// WithFixInvalidDest sets whether a directory at the target path is removed.
func WithFixInvalidDest(fix bool) SaveOption {
	return func(c *SaveConfig) { c.FixInvalidDest = fix }
}

// WithSaveLogger sets the logger for Save.
func WithSaveLogger(l *log.Logger) SaveOption {
	return func(c *SaveConfig) { c.Logger = l }
}

// Save writes the payload of src to path without extracting it. The data is
// written to a temporary file next to path and renamed into place, so path
// never holds a partial download.
func Save(ctx context.Context, src Source, path string, opts ...SaveOption) error {
	cfg := DefaultSaveConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return SaveWithConfig(ctx, src, path, cfg)
}

// SaveWithConfig is Save with an explicit SaveConfig.
func SaveWithConfig(ctx context.Context, src Source, path string, cfg SaveConfig) (err error) {
	if path == "" {
		return fmt.Errorf("%w: target file must not be empty", unroll.ErrInvalidConfig)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return &unroll.FilesystemError{Op: "resolve target", Path: path, Err: err}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "fetchunroll", Level: log.WarnLevel})
	}

	plan, err := checkSaveTarget(target, cfg)
	if err != nil {
		return err
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }() // read-only source

	if plan.createDir {
		dir := filepath.Dir(target)
		logger.Debug("creating parent directory", "path", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &unroll.FilesystemError{Op: "create directory", Path: dir, Err: err}
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.part")
	if err != nil {
		return &unroll.FilesystemError{Op: "create temporary file", Path: filepath.Dir(target), Err: err}
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	tracker := &writeTracker{w: tmp}
	n, copyErr := io.Copy(tracker, &contextReader{ctx: ctx, r: rc})
	if copyErr != nil {
		if tracker.err != nil {
			return &unroll.FilesystemError{Op: "write file", Path: tmp.Name(), Err: tracker.err}
		}
		return copyErr
	}
	if err := tmp.Chmod(0o644); err != nil {
		return &unroll.FilesystemError{Op: "chmod file", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &unroll.FilesystemError{Op: "close file", Path: tmp.Name(), Err: err}
	}

	if plan.replaceDir {
		logger.Debug("removing directory at target", "path", target)
		if err := os.RemoveAll(target); err != nil {
			return &unroll.FilesystemError{Op: "remove invalid target", Path: target, Err: err}
		}
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return &unroll.FilesystemError{Op: "rename file", Path: target, Err: err}
	}

	logger.Debug("saved", "source", src.String(), "path", target, "bytes", n)
	return nil
}

// checkSaveTarget validates target before anything is downloaded. It does not
// touch the filesystem, so a failed download leaves no directories behind.
func checkSaveTarget(target string, cfg SaveConfig) (savePlan, error) {
	var plan savePlan

	info, err := os.Lstat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return plan, &unroll.FilesystemError{Op: "stat target", Path: target, Err: err}
	case !cfg.Overwrite:
		return plan, &unroll.FilesystemError{Op: "save file", Path: target, Err: unroll.ErrDestinationExists}
	case info.IsDir():
		if !cfg.FixInvalidDest {
			return plan, &unroll.FilesystemError{Op: "save file", Path: target, Err: fmt.Errorf("%w as a directory", unroll.ErrDestinationExists)}
		}
		plan.replaceDir = true
	}

	dir := filepath.Dir(target)
	dirInfo, err := os.Stat(dir)
	switch {
	case err == nil && dirInfo.IsDir():
		return plan, nil
	case err == nil:
		return savePlan{}, &unroll.FilesystemError{Op: "save file", Path: dir, Err: unroll.ErrNotDirectory}
	case errors.Is(err, fs.ErrNotExist) && cfg.CreateDestPath:
		plan.createDir = true
		return plan, nil
	default:
		return savePlan{}, &unroll.FilesystemError{Op: "stat directory", Path: dir, Err: err}
	}
}

func (t *writeTracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
