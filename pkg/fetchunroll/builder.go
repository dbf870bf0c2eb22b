// SPDX-License-Identifier: MPL-2.0

package fetchunroll

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

type (
	// Fetch is the first step of the builder chain. It names the source.
	Fetch struct {
		src Source
	}

	// Unroller collects extraction options for a Fetch.
	Unroller struct {
		src Source
		cfg unroll.Config
	}

	// Saver collects Save options for a Fetch.
	Saver struct {
		src Source
		cfg SaveConfig
	}
)

// FromURL starts a chain that downloads u with a Fetcher built from opts.
func FromURL(u string, opts ...fetch.Option) *Fetch {
	return &Fetch{src: URL(u, fetch.New(opts...))}
}

// FromSource starts a chain over an existing Source.
func FromSource(src Source) *Fetch {
	return &Fetch{src: src}
}

// FromBytes starts a chain over an in-memory archive.
func FromBytes(b []byte) *Fetch {
	return &Fetch{src: Bytes(b)}
}

// FromFile starts a chain over a local archive.
func FromFile(path string) *Fetch {
	return &Fetch{src: File(path)}
}

// FromReader starts a chain over r.
func FromReader(r io.Reader) *Fetch {
	return &Fetch{src: Reader(r)}
}

// Source returns the source of the chain.
func (f *Fetch) Source() Source { return f.src }

// Unroll continues the chain with extraction using the default options.
func (f *Fetch) Unroll() *Unroller {
	return &Unroller{src: f.src, cfg: unroll.DefaultConfig()}
}

// Save continues the chain with a plain download using the default options.
func (f *Fetch) Save() *Saver {
	return &Saver{src: f.src, cfg: DefaultSaveConfig()}
}

// StripComponents sets how many leading path components are removed.
func (u *Unroller) StripComponents(n int) *Unroller {
	u.cfg.StripComponents = n
	return u
}

// Overwrite sets whether existing files may be replaced.
func (u *Unroller) Overwrite(overwrite bool) *Unroller {
	u.cfg.Overwrite = overwrite
	return u
}

// CreateDest sets whether a missing destination directory is created.
func (u *Unroller) CreateDest(create bool) *Unroller {
	u.cfg.CreateDest = create
	return u
}

// CleanupDest sets whether the destination is emptied before extracting.
func (u *Unroller) CleanupDest(cleanup bool) *Unroller {
	u.cfg.CleanupDest = cleanup
	return u
}

// FixInvalidDest sets whether a file at the destination path is replaced by a directory.
func (u *Unroller) FixInvalidDest(fix bool) *Unroller {
	u.cfg.FixInvalidDest = fix
	return u
}

// CleanupOnError sets whether everything written is removed when extraction fails.
func (u *Unroller) CleanupOnError(cleanup bool) *Unroller {
	u.cfg.CleanupOnError = cleanup
	return u
}

// StripWhenAlone clamps stripping to the components shared by all entries.
func (u *Unroller) StripWhenAlone(alone bool) *Unroller {
	u.cfg.StripWhenAlone = alone
	return u
}

// Symlinks sets the policy for symlink and hard link entries.
func (u *Unroller) Symlinks(policy unroll.SymlinkPolicy) *Unroller {
	u.cfg.Symlinks = policy
	return u
}

// MaxBytes bounds the decompressed archive size.
func (u *Unroller) MaxBytes(n int64) *Unroller {
	u.cfg.MaxBytes = n
	return u
}

// Logger sets the logger for extraction decisions.
func (u *Unroller) Logger(l *log.Logger) *Unroller {
	u.cfg.Logger = l
	return u
}

// Config returns the options collected so far.
func (u *Unroller) Config() unroll.Config { return u.cfg }

// To runs the chain, extracting into dir.
func (u *Unroller) To(ctx context.Context, dir string) error {
	return FetchUnrollWithConfig(ctx, u.src, dir, u.cfg)
}

// CreateDestPath sets whether missing parent directories are created.
func (s *Saver) CreateDestPath(create bool) *Saver {
	s.cfg.CreateDestPath = create
	return s
}

// Overwrite sets whether an existing file may be replaced.
func (s *Saver) Overwrite(overwrite bool) *Saver {
	s.cfg.Overwrite = overwrite
	return s
}

// FixInvalidDest sets whether a directory at the target path is removed.
func (s *Saver) FixInvalidDest(fix bool) *Saver {
	s.cfg.FixInvalidDest = fix
	return s
}

// Logger sets the logger for Save.
func (s *Saver) Logger(l *log.Logger) *Saver {
	s.cfg.Logger = l
	return s
}

// To runs the chain, writing the payload to path.
func (s *Saver) To(ctx context.Context, path string) error {
	return SaveWithConfig(ctx, s.src, path, s.cfg)
}
