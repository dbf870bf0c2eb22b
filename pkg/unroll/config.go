// SPDX-License-Identifier: MPL-2.0

package unroll

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// DefaultMaxBytes bounds the decompressed size of an archive (4 GiB).
const DefaultMaxBytes int64 = 4 << 30

const (
	// SymlinkSkip ignores symlink and hard link entries.
	SymlinkSkip SymlinkPolicy = "skip"
	// SymlinkReject fails extraction on the first symlink or hard link entry.
	SymlinkReject SymlinkPolicy = "reject"
)

type (
	// SymlinkPolicy selects how link entries are handled.
	SymlinkPolicy string

	// Config holds the options for a single extraction. Use DefaultConfig and
	// the With* options rather than the zero value: several defaults are true.
	Config struct {
		// StripComponents is the number of leading path components removed from
		// every entry name before it is written.
		StripComponents int
		// Overwrite allows replacing files that already exist.
		Overwrite bool
		// CreateDest creates the destination directory when it is missing.
		CreateDest bool
		// CleanupDest removes the destination's contents before extraction.
		CleanupDest bool
		// FixInvalidDest replaces a destination that exists but is not a
		// directory.
		FixInvalidDest bool
		// CleanupOnError removes everything this extraction created when it
		// fails.
		CleanupOnError bool
		// StripWhenAlone clamps StripComponents to the number of leading
		// components shared by every entry.
		StripWhenAlone bool
		// Symlinks selects how link entries are handled.
		Symlinks SymlinkPolicy
		// MaxBytes bounds the decompressed tar stream.
		MaxBytes int64
		// Logger receives per-entry debug output.
		Logger *log.Logger
	}

	// Option configures an extraction.
	Option func(*Config)
)

// DefaultConfig returns the default extraction options: no stripping,
// overwrite enabled, destination created on demand, links skipped.
func DefaultConfig() Config {
	return Config{
		Overwrite:      true,
		CreateDest:     true,
		FixInvalidDest: true,
		Symlinks:       SymlinkSkip,
		MaxBytes:       DefaultMaxBytes,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithStripComponents sets the number of leading path components to strip.
func WithStripComponents(n int) Option {
	return func(c *Config) {
		c.StripComponents = n
	}
}

// WithOverwrite controls whether existing files may be replaced.
func WithOverwrite(overwrite bool) Option {
	return func(c *Config) {
		c.Overwrite = overwrite
	}
}

// WithCreateDest controls whether a missing destination is created.
func WithCreateDest(create bool) Option {
	return func(c *Config) {
		c.CreateDest = create
	}
}

// WithCleanupDest controls whether the destination is emptied first.
func WithCleanupDest(cleanup bool) Option {
	return func(c *Config) {
		c.CleanupDest = cleanup
	}
}

// WithFixInvalidDest controls whether a non-directory destination is replaced.
func WithFixInvalidDest(fix bool) Option {
	return func(c *Config) {
		c.FixInvalidDest = fix
	}
}

// WithCleanupOnError controls whether a failed extraction removes what it
// created.
func WithCleanupOnError(cleanup bool) Option {
	return func(c *Config) {
		c.CleanupOnError = cleanup
	}
}

// WithStripWhenAlone clamps stripping to the components shared by all entries.
func WithStripWhenAlone(alone bool) Option {
	return func(c *Config) {
		c.StripWhenAlone = alone
	}
}

// WithSymlinks sets the link entry policy.
func WithSymlinks(policy SymlinkPolicy) Option {
	return func(c *Config) {
		c.Symlinks = policy
	}
}

// WithMaxBytes bounds the decompressed archive size.
func WithMaxBytes(n int64) Option {
	return func(c *Config) {
		c.MaxBytes = n
	}
}

// WithLogger sets the logger used for per-entry output.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// ParseSymlinkPolicy converts a user-supplied string into a SymlinkPolicy.
func ParseSymlinkPolicy(s string) (SymlinkPolicy, error) {
	p := SymlinkPolicy(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate reports whether p is a known policy.
func (p SymlinkPolicy) Validate() error {
	switch p {
	case SymlinkSkip, SymlinkReject:
		return nil
	default:
		return fmt.Errorf("%w: unknown symlink policy %q (want %q or %q)", ErrInvalidConfig, p, SymlinkSkip, SymlinkReject)
	}
}

// Validate checks the options before any work is done.
func (c Config) Validate() error {
	if c.StripComponents < 0 {
		return fmt.Errorf("%w: strip components must not be negative, got %d", ErrInvalidConfig, c.StripComponents)
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("%w: max bytes must be positive, got %d", ErrInvalidConfig, c.MaxBytes)
	}
	return c.Symlinks.Validate()
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "fetchunroll",
		Level:  log.WarnLevel,
	})
}
