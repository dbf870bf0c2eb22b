// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

const (
	// DefaultTimeout bounds a whole download, body included.
	DefaultTimeout = 10 * time.Minute
)

var (
	// ErrInvalidHTTPConfig is the sentinel error wrapped by InvalidHTTPConfigError.
	ErrInvalidHTTPConfig = errors.New("invalid http config")
	// ErrInvalidUnrollConfig is the sentinel error wrapped by InvalidUnrollConfigError.
	ErrInvalidUnrollConfig = errors.New("invalid unroll config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// InvalidHTTPConfigError is returned when an HTTPConfig has invalid fields.
	// It wraps ErrInvalidHTTPConfig for errors.Is() compatibility.
	InvalidHTTPConfigError struct {
		FieldErrors []error
	}

	// InvalidUnrollConfigError is returned when an UnrollConfig has invalid fields.
	// It wraps ErrInvalidUnrollConfig for errors.Is() compatibility.
	InvalidUnrollConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// HTTP configures downloads
		HTTP HTTPConfig `json:"http" mapstructure:"http"`
		// Unroll holds the default extraction options
		Unroll UnrollConfig `json:"unroll" mapstructure:"unroll"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// HTTPConfig configures the Fetcher.
	HTTPConfig struct {
		// Backend names the HTTP backend ("nethttp" or "http2"); empty selects
		// the build default.
		Backend string `json:"backend" mapstructure:"backend"`
		// Timeout bounds a whole download; zero disables it.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// UserAgent overrides the User-Agent header.
		UserAgent string `json:"user_agent" mapstructure:"user_agent"`
		// MaxRedirects bounds the redirects followed per request.
		MaxRedirects int `json:"max_redirects" mapstructure:"max_redirects"`
	}

	// UnrollConfig holds the extraction defaults. CLI flags override them.
	UnrollConfig struct {
		StripComponents int    `json:"strip_components" mapstructure:"strip_components" toml:"strip_components"`
		Overwrite       bool   `json:"overwrite" mapstructure:"overwrite" toml:"overwrite"`
		StripWhenAlone  bool   `json:"strip_when_alone" mapstructure:"strip_when_alone" toml:"strip_when_alone"`
		CleanupDest     bool   `json:"cleanup_dest" mapstructure:"cleanup_dest" toml:"cleanup_dest"`
		CleanupOnError  bool   `json:"cleanup_on_error" mapstructure:"cleanup_on_error" toml:"cleanup_on_error"`
		Symlinks        string `json:"symlinks" mapstructure:"symlinks" toml:"symlinks"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and issue guides on failure
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}
)

// IsValid returns whether the HTTPConfig has valid fields.
func (c HTTPConfig) IsValid() (bool, []error) {
	var errs []error
	if _, err := fetch.BackendByName(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s: must not be negative", c.Timeout))
	}
	if c.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("max_redirects %d: must not be negative", c.MaxRedirects))
	}
	if c.UserAgent != "" && strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, errors.New("user_agent: non-empty value must not be whitespace-only"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidHTTPConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidHTTPConfigError.
func (e *InvalidHTTPConfigError) Error() string {
	return fmt.Sprintf("invalid http config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidHTTPConfig for errors.Is() compatibility.
func (e *InvalidHTTPConfigError) Unwrap() error { return ErrInvalidHTTPConfig }

// IsValid returns whether the UnrollConfig has valid fields. Bool fields need
// no validation.
func (c UnrollConfig) IsValid() (bool, []error) {
	var errs []error
	if c.StripComponents < 0 {
		errs = append(errs, fmt.Errorf("strip_components %d: must not be negative", c.StripComponents))
	}
	if _, err := unroll.ParseSymlinkPolicy(c.Symlinks); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUnrollConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUnrollConfigError.
func (e *InvalidUnrollConfigError) Error() string {
	return fmt.Sprintf("invalid unroll config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidUnrollConfig for errors.Is() compatibility.
func (e *InvalidUnrollConfigError) Unwrap() error { return ErrInvalidUnrollConfig }

// IsValid returns whether the Config has valid fields.
// UI has only bool fields and needs no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.HTTP.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Unroll.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// UnrollOptions converts the extraction defaults to unroll options.
func (c UnrollConfig) UnrollOptions() []unroll.Option {
	policy, err := unroll.ParseSymlinkPolicy(c.Symlinks)
	if err != nil {
		policy = unroll.SymlinkSkip
	}
	return []unroll.Option{
		unroll.WithStripComponents(c.StripComponents),
		unroll.WithOverwrite(c.Overwrite),
		unroll.WithStripWhenAlone(c.StripWhenAlone),
		unroll.WithCleanupDest(c.CleanupDest),
		unroll.WithCleanupOnError(c.CleanupOnError),
		unroll.WithSymlinks(policy),
	}
}

// FetchOptions converts the HTTP settings to fetch options. The backend must
// have been validated.
func (c HTTPConfig) FetchOptions() []fetch.Option {
	opts := []fetch.Option{
		fetch.WithTimeout(c.Timeout),
		fetch.WithMaxRedirects(c.MaxRedirects),
	}
	if b, err := fetch.BackendByName(c.Backend); err == nil {
		opts = append(opts, fetch.WithBackend(b))
	}
	if c.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(c.UserAgent))
	}
	return opts
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Backend:      "", // build default
			Timeout:      DefaultTimeout,
			UserAgent:    "",
			MaxRedirects: fetch.DefaultMaxRedirects,
		},
		Unroll: UnrollConfig{
			StripComponents: 0,
			Overwrite:       true,
			StripWhenAlone:  false,
			CleanupDest:     false,
			CleanupOnError:  false,
			Symlinks:        string(unroll.SymlinkSkip),
		},
		UI: UIConfig{
			Verbose: false,
		},
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
