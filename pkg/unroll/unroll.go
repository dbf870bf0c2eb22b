// SPDX-License-Identifier: MPL-2.0

package unroll

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

type (
	// sourceReader remembers the last non-EOF error returned by the wrapped
	// reader, so failures surfacing through the gzip layer can be attributed
	// to the source rather than to the compressed data.
	sourceReader struct {
		ctx context.Context
		r   io.Reader
		err error
	}

	// extractor writes the entries of one archive under dest.
	extractor struct {
		dest    string
		strip   int
		cfg     Config
		logger  *log.Logger
		madeDir map[string]bool
		created []string // paths this run created, in creation order
	}
)

// Unroll decompresses the gzip-compressed tar stream r and extracts it into
// dest. See Config for the available options.
func Unroll(ctx context.Context, r io.Reader, dest string, opts ...Option) error {
	return UnrollWithConfig(ctx, r, dest, NewConfig(opts...))
}

// UnrollWithConfig is Unroll with an explicit Config.
func UnrollWithConfig(ctx context.Context, r io.Reader, dest string, cfg Config) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dest == "" {
		return fmt.Errorf("%w: destination directory must not be empty", ErrInvalidConfig)
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return &FilesystemError{Op: "resolve destination", Path: dest, Err: err}
	}

	logger := cfg.logger()

	tarball, err := spool(ctx, r, cfg.MaxBytes)
	if err != nil {
		return err
	}
	defer func() {
		_ = tarball.Close() // spool file is removed right after
		_ = os.Remove(tarball.Name())
	}()

	destCreated, err := prepareDest(absDest, cfg)
	if err != nil {
		return err
	}

	x := &extractor{
		dest:    absDest,
		strip:   cfg.StripComponents,
		cfg:     cfg,
		logger:  logger,
		madeDir: map[string]bool{absDest: true},
	}
	defer func() {
		if err != nil && cfg.CleanupOnError {
			x.cleanup(destCreated)
		}
	}()

	if cfg.StripWhenAlone && x.strip > 0 {
		common, scanErr := commonComponents(tarball)
		if scanErr != nil {
			return scanErr
		}
		if _, seekErr := tarball.Seek(0, io.SeekStart); seekErr != nil {
			return &FilesystemError{Op: "rewind spool file", Path: tarball.Name(), Err: seekErr}
		}
		if common < x.strip {
			logger.Debug("clamping strip components", "requested", x.strip, "common", common)
			x.strip = common
		}
	}

	return x.extract(ctx, tar.NewReader(tarball))
}

// spool decompresses r into a temporary file positioned at its start. The
// caller closes and removes the file.
func spool(ctx context.Context, r io.Reader, maxBytes int64) (_ *os.File, err error) {
	src := &sourceReader{ctx: ctx, r: r}

	gz, err := gzip.NewReader(src)
	if err != nil {
		return nil, src.attribute(err)
	}
	defer func() { _ = gz.Close() }() // nothing to flush on a reader

	f, err := os.CreateTemp("", "fetchunroll-*.tar")
	if err != nil {
		return nil, &FilesystemError{Op: "create spool file", Path: os.TempDir(), Err: err}
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	limit := maxBytes
	if limit < math.MaxInt64 {
		limit++
	}

	n, readErr, writeErr := copyBuffered(f, io.LimitReader(gz, limit))
	switch {
	case readErr != nil:
		return nil, src.attribute(readErr)
	case writeErr != nil:
		return nil, &FilesystemError{Op: "write spool file", Path: f.Name(), Err: writeErr}
	case n > maxBytes:
		return nil, &ArchiveError{Err: fmt.Errorf("%w of %d bytes", ErrArchiveTooLarge, maxBytes)}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, &FilesystemError{Op: "rewind spool file", Path: f.Name(), Err: err}
	}
	return f, nil
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return 0, err
	}
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}

// attribute maps an error seen while decompressing. If the source itself
// failed, its error is returned unchanged; otherwise the compressed data is
// at fault.
func (s *sourceReader) attribute(err error) error {
	if s.err != nil {
		return s.err
	}
	return &DecompressionError{Err: err}
}

// prepareDest makes sure dest is a usable directory and reports whether this
// call created it.
func prepareDest(dest string, cfg Config) (bool, error) {
	info, err := os.Stat(dest)
	switch {
	case err == nil && info.IsDir():
		if cfg.CleanupDest {
			if err := removeDirEntries(dest); err != nil {
				return false, err
			}
		}
		return false, nil
	case err == nil:
		if !cfg.FixInvalidDest {
			return false, &FilesystemError{Op: "prepare destination", Path: dest, Err: ErrNotDirectory}
		}
		if err := os.Remove(dest); err != nil {
			return false, &FilesystemError{Op: "remove invalid destination", Path: dest, Err: err}
		}
		if !cfg.CreateDest {
			return false, &FilesystemError{Op: "prepare destination", Path: dest, Err: fs.ErrNotExist}
		}
	case errors.Is(err, fs.ErrNotExist):
		if !cfg.CreateDest {
			return false, &FilesystemError{Op: "prepare destination", Path: dest, Err: err}
		}
	default:
		return false, &FilesystemError{Op: "stat destination", Path: dest, Err: err}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return false, &FilesystemError{Op: "create destination", Path: dest, Err: err}
	}
	return true, nil
}

func removeDirEntries(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &FilesystemError{Op: "read destination", Path: dir, Err: err}
	}
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			return &FilesystemError{Op: "clean destination", Path: p, Err: err}
		}
	}
	return nil
}

// commonComponents counts the leading components shared by every directory
// and regular file entry of the tar stream r.
func commonComponents(r io.Reader) (int, error) {
	tr := tar.NewReader(r)
	var prefix commonPrefix
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return prefix.len(), nil
		}
		if err != nil {
			return 0, &ArchiveError{Err: fmt.Errorf("reading tar entry: %w", err)}
		}

		parts := splitEntryPath(hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			prefix.add(parts)
		case tar.TypeReg:
			if len(parts) > 0 {
				prefix.add(parts[:len(parts)-1])
			}
		}
	}
}

func (x *extractor) extract(ctx context.Context, tr *tar.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ArchiveError{Err: fmt.Errorf("reading tar entry: %w", err)}
		}

		if err := x.entry(hdr, tr); err != nil {
			return err
		}
	}
}

func (x *extractor) entry(hdr *tar.Header, r io.Reader) error {
	// PAX global headers carry metadata only.
	if hdr.Typeflag == tar.TypeXGlobalHeader {
		return nil
	}

	rel, err := stripEntryPath(hdr.Name, x.strip)
	if err != nil {
		return &ArchiveError{Entry: hdr.Name, Err: err}
	}
	if rel == "" {
		x.logger.Debug("skipping entry with no components left", "name", hdr.Name, "strip", x.strip)
		return nil
	}

	target := filepath.Join(x.dest, filepath.FromSlash(rel))
	if !withinDir(x.dest, target) {
		return &ArchiveError{Entry: hdr.Name, Err: ErrPathTraversal}
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return x.makeDir(target)
	case tar.TypeReg:
		return x.writeFile(hdr, target, r)
	case tar.TypeSymlink, tar.TypeLink:
		if x.cfg.Symlinks == SymlinkReject {
			return &ArchiveError{Entry: hdr.Name, Err: ErrLinkEntry}
		}
		x.logger.Debug("skipping link entry", "name", hdr.Name, "link", hdr.Linkname)
		return nil
	default:
		x.logger.Debug("skipping unsupported entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		return nil
	}
}

// makeDir creates dir and any missing parents up to the destination. Every
// existing component must be a real directory; a symlink in the way is
// refused so that writes cannot be redirected outside the destination.
func (x *extractor) makeDir(dir string) error {
	if x.madeDir[dir] {
		return nil
	}

	info, err := os.Lstat(dir)
	switch {
	case err == nil && info.IsDir():
	case err == nil:
		return &FilesystemError{Op: "create directory", Path: dir, Err: ErrNotDirectory}
	case errors.Is(err, fs.ErrNotExist):
		if err := x.makeDir(filepath.Dir(dir)); err != nil {
			return err
		}
		if err := os.Mkdir(dir, 0o755); err != nil {
			return &FilesystemError{Op: "create directory", Path: dir, Err: err}
		}
		x.created = append(x.created, dir)
	default:
		return &FilesystemError{Op: "stat directory", Path: dir, Err: err}
	}

	x.madeDir[dir] = true
	return nil
}

func (x *extractor) writeFile(hdr *tar.Header, target string, r io.Reader) error {
	if err := x.makeDir(filepath.Dir(target)); err != nil {
		return err
	}
	if err := x.clearTarget(target); err != nil {
		return err
	}

	mode := fs.FileMode(hdr.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return &FilesystemError{Op: "create file", Path: target, Err: err}
	}
	x.created = append(x.created, target)

	n, readErr, writeErr := copyBuffered(f, r)
	closeErr := f.Close()
	switch {
	case readErr != nil:
		return &ArchiveError{Entry: hdr.Name, Err: fmt.Errorf("reading entry data: %w", readErr)}
	case writeErr != nil:
		return &FilesystemError{Op: "write file", Path: target, Err: writeErr}
	case closeErr != nil:
		return &FilesystemError{Op: "close file", Path: target, Err: closeErr}
	}

	if !hdr.ModTime.IsZero() {
		if err := os.Chtimes(target, hdr.ModTime, hdr.ModTime); err != nil {
			return &FilesystemError{Op: "set modification time", Path: target, Err: err}
		}
	}

	x.logger.Debug("wrote file", "path", target, "bytes", n)
	return nil
}

// clearTarget removes an existing file at target when overwriting is allowed.
func (x *extractor) clearTarget(target string) error {
	info, err := os.Lstat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return &FilesystemError{Op: "stat file", Path: target, Err: err}
	case !x.cfg.Overwrite:
		return &FilesystemError{Op: "write file", Path: target, Err: ErrDestinationExists}
	case info.IsDir():
		return &FilesystemError{Op: "write file", Path: target, Err: fmt.Errorf("%w as a directory", ErrDestinationExists)}
	}

	if err := os.Remove(target); err != nil {
		return &FilesystemError{Op: "remove existing file", Path: target, Err: err}
	}
	return nil
}

// cleanup removes what this run created, newest first.
func (x *extractor) cleanup(destCreated bool) {
	if destCreated {
		if err := os.RemoveAll(x.dest); err != nil {
			x.logger.Warn("cleanup failed", "path", x.dest, "err", err)
		}
		return
	}

	for i := len(x.created) - 1; i >= 0; i-- {
		if err := os.RemoveAll(x.created[i]); err != nil {
			x.logger.Warn("cleanup failed", "path", x.created[i], "err", err)
		}
	}
}
