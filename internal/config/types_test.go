// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

func TestHTTPConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cfg   HTTPConfig
		valid bool
	}{
		{"defaults", DefaultConfig().HTTP, true},
		{"http2 backend", HTTPConfig{Backend: "http2"}, true},
		{"backend is case-insensitive", HTTPConfig{Backend: "NetHTTP"}, true},
		{"unknown backend", HTTPConfig{Backend: "curl"}, false},
		{"negative timeout", HTTPConfig{Timeout: -time.Second}, false},
		{"negative redirects", HTTPConfig{MaxRedirects: -1}, false},
		{"whitespace user agent", HTTPConfig{UserAgent: "  "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.cfg.IsValid()
			if valid != tt.valid {
				t.Fatalf("IsValid() = %v (%v), want %v", valid, errs, tt.valid)
			}
			if !valid && !errors.Is(errs[0], ErrInvalidHTTPConfig) {
				t.Errorf("error should wrap ErrInvalidHTTPConfig, got %v", errs[0])
			}
		})
	}
}

func TestUnrollConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cfg   UnrollConfig
		valid bool
	}{
		{"defaults", DefaultConfig().Unroll, true},
		{"reject symlinks", UnrollConfig{Symlinks: "reject"}, true},
		{"empty symlinks", UnrollConfig{}, false},
		{"negative strip", UnrollConfig{StripComponents: -1, Symlinks: "skip"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.cfg.IsValid()
			if valid != tt.valid {
				t.Fatalf("IsValid() = %v (%v), want %v", valid, errs, tt.valid)
			}
			if !valid && !errors.Is(errs[0], ErrInvalidUnrollConfig) {
				t.Errorf("error should wrap ErrInvalidUnrollConfig, got %v", errs[0])
			}
		})
	}
}

func TestConfig_IsValid_CollectsSections(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.HTTP.MaxRedirects = -1
	cfg.Unroll.StripComponents = -1

	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() = true, want false")
	}

	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(cfgErr.FieldErrors) != 2 {
		t.Errorf("expected 2 section errors, got %d", len(cfgErr.FieldErrors))
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("error should wrap ErrInvalidConfig")
	}
}

func TestUnrollConfig_UnrollOptions(t *testing.T) {
	t.Parallel()

	uc := UnrollConfig{
		StripComponents: 2,
		Overwrite:       false,
		StripWhenAlone:  true,
		CleanupOnError:  true,
		Symlinks:        "reject",
	}

	got := unroll.NewConfig(uc.UnrollOptions()...)
	if got.StripComponents != 2 {
		t.Errorf("StripComponents = %d, want 2", got.StripComponents)
	}
	if got.Overwrite {
		t.Error("Overwrite should be false")
	}
	if !got.StripWhenAlone {
		t.Error("StripWhenAlone should be true")
	}
	if !got.CleanupOnError {
		t.Error("CleanupOnError should be true")
	}
	if got.Symlinks != unroll.SymlinkReject {
		t.Errorf("Symlinks = %q, want reject", got.Symlinks)
	}
}

func TestHTTPConfig_FetchOptions(t *testing.T) {
	t.Parallel()

	f := fetch.New(HTTPConfig{Backend: "http2", Timeout: time.Minute, UserAgent: "ci"}.FetchOptions()...)
	if f.Backend() != fetch.BackendHTTP2 {
		t.Errorf("Backend() = %q, want %q", f.Backend(), fetch.BackendHTTP2)
	}
}
