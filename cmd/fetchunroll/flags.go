// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/invowk/fetchunroll/internal/config"
	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

// errInvalidFlag marks a flag value that cannot be parsed.
var errInvalidFlag = errors.New("invalid flag value")

type (
	// unrollFlags mirrors the [unroll] config section. A flag only overrides
	// the config when it was set on the command line.
	unrollFlags struct {
		stripComponents int
		noOverwrite     bool
		stripWhenAlone  bool
		clean           bool
		cleanupOnError  bool
		fixInvalidDest  bool
		symlinks        string
		maxBytes        string
	}

	// httpFlags mirrors the [http] config section plus per-run headers.
	httpFlags struct {
		backend      string
		timeout      time.Duration
		userAgent    string
		maxRedirects int
		headers      []string
	}
)

func (f *unrollFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVarP(&f.stripComponents, "strip-components", "s", 0, "remove this many leading path components from every entry")
	fl.BoolVar(&f.noOverwrite, "no-overwrite", false, "fail instead of replacing files that already exist")
	fl.BoolVar(&f.stripWhenAlone, "strip-when-alone", false, "strip no deeper than the directories shared by every entry")
	fl.BoolVar(&f.clean, "clean", false, "empty the destination directory before extracting")
	fl.BoolVar(&f.cleanupOnError, "cleanup-on-error", false, "remove everything written when extraction fails")
	fl.BoolVar(&f.fixInvalidDest, "fix-invalid-dest", true, "replace a file found where the destination directory should be")
	fl.StringVar(&f.symlinks, "symlinks", "", "link entries: skip or reject (default from config: skip)")
	fl.StringVar(&f.maxBytes, "max-bytes", "", "limit on the decompressed size, e.g. 512MiB (default 4GiB)")
}

// options layers the changed flags over the config defaults.
func (f *unrollFlags) options(cmd *cobra.Command, cfg config.UnrollConfig, logger *log.Logger) ([]unroll.Option, error) {
	opts := cfg.UnrollOptions()
	changed := cmd.Flags().Changed

	if changed("strip-components") {
		opts = append(opts, unroll.WithStripComponents(f.stripComponents))
	}
	if changed("no-overwrite") {
		opts = append(opts, unroll.WithOverwrite(!f.noOverwrite))
	}
	if changed("strip-when-alone") {
		opts = append(opts, unroll.WithStripWhenAlone(f.stripWhenAlone))
	}
	if changed("clean") {
		opts = append(opts, unroll.WithCleanupDest(f.clean))
	}
	if changed("cleanup-on-error") {
		opts = append(opts, unroll.WithCleanupOnError(f.cleanupOnError))
	}
	if changed("fix-invalid-dest") {
		opts = append(opts, unroll.WithFixInvalidDest(f.fixInvalidDest))
	}
	if changed("symlinks") {
		policy, err := unroll.ParseSymlinkPolicy(f.symlinks)
		if err != nil {
			return nil, fmt.Errorf("--symlinks: %w", err)
		}
		opts = append(opts, unroll.WithSymlinks(policy))
	}
	if changed("max-bytes") {
		n, err := parseByteSize(f.maxBytes)
		if err != nil {
			return nil, err
		}
		opts = append(opts, unroll.WithMaxBytes(n))
	}

	return append(opts, unroll.WithLogger(logger)), nil
}

func parseByteSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: --max-bytes %q: %v", errInvalidFlag, s, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("%w: --max-bytes %q: out of range", errInvalidFlag, s)
	}
	return int64(n), nil
}

func (f *httpFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.backend, "backend", "", "HTTP backend: nethttp or http2 (default from build)")
	fl.DurationVar(&f.timeout, "timeout", 0, "bound on the whole download, 0 disables it (default 10m)")
	fl.StringVar(&f.userAgent, "user-agent", "", "User-Agent header sent with the request")
	fl.IntVar(&f.maxRedirects, "max-redirects", 0, "redirects followed before giving up (default 5)")
	fl.StringArrayVarP(&f.headers, "header", "H", nil, `extra request header "Name: value" (repeatable)`)
}

// fetcher builds the Fetcher from the config with the changed flags on top.
func (f *httpFlags) fetcher(cmd *cobra.Command, cfg config.HTTPConfig, logger *log.Logger) (*fetch.Fetcher, error) {
	changed := cmd.Flags().Changed
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}
	if changed("max-redirects") {
		cfg.MaxRedirects = f.maxRedirects
	}
	if valid, errs := cfg.IsValid(); !valid {
		return nil, errs[0]
	}

	opts := append(cfg.FetchOptions(), fetch.WithLogger(logger))
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: --header %q: want \"Name: value\"", errInvalidFlag, h)
		}
		opts = append(opts, fetch.WithHeader(name, strings.TrimSpace(value)))
	}

	return fetch.New(opts...), nil
}
