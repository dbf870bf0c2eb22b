// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestLoadOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       LoadOptions
		wantFields int
	}{
		{"all empty", LoadOptions{}, 0},
		{"all valid", LoadOptions{ConfigFilePath: "/tmp/config.cue", ConfigDirPath: "/tmp/config"}, 0},
		{"whitespace file path", LoadOptions{ConfigFilePath: "   "}, 1},
		{"whitespace dir path", LoadOptions{ConfigDirPath: "\t"}, 1},
		{"both invalid", LoadOptions{ConfigFilePath: " ", ConfigDirPath: "\n"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.Validate()
			if tt.wantFields == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, ErrInvalidLoadOptions) {
				t.Errorf("error should wrap ErrInvalidLoadOptions, got: %v", err)
			}
			var loadErr *InvalidLoadOptionsError
			if !errors.As(err, &loadErr) {
				t.Fatalf("error should be *InvalidLoadOptionsError, got: %T", err)
			}
			if len(loadErr.FieldErrors) != tt.wantFields {
				t.Errorf("expected %d field errors, got %d", tt.wantFields, len(loadErr.FieldErrors))
			}
		})
	}
}

func TestProvider_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.cue", "unroll: strip_components: 2\n")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Unroll.StripComponents != 2 {
		t.Errorf("strip components = %d, want 2", cfg.Unroll.StripComponents)
	}
}

func TestProvider_Load_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: "  "})
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Errorf("Load error = %v, want ErrInvalidLoadOptions", err)
	}
}

func TestProvider_Load_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "missing.toml"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
