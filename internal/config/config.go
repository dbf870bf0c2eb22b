// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/fetchunroll/internal/issue"
	"github.com/invowk/fetchunroll/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "fetchunroll"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// EnvPrefix prefixes environment overrides (FETCHUNROLL_HTTP_TIMEOUT).
	EnvPrefix = "FETCHUNROLL"
)

// Format is a config file format, named by its file extension.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatTOML Format = "toml"
)

// ErrConfigExists is returned by WriteDefault when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// ParseFormat accepts "cue" or "toml" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCUE, FormatTOML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown config format %q (want cue or toml)", s)
	}
}

// formatOf picks the format from a file extension; anything other than
// .toml is read as CUE.
func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), "."+string(FormatTOML)) {
		return FormatTOML
	}
	return FormatCUE
}

// ConfigDir returns the fetchunroll configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// FindConfigFile reports which file Load would read. When no file exists the
// returned path is where WriteDefault would create the CUE file and found is
// false.
func FindConfigFile(opts LoadOptions) (path string, found bool, err error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath), nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", false, err
	}

	// CUE wins when both files exist.
	for _, f := range []Format{FormatCUE, FormatTOML} {
		candidate := filepath.Join(cfgDir, ConfigFileName+"."+string(f))
		if fileExists(candidate) {
			return candidate, true, nil
		}
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+string(FormatCUE)), false, nil
}

// loadWithOptions performs option-driven config loading: defaults, then the
// config file, then FETCHUNROLL_* environment variables.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, found, err := FindConfigFile(opts)
	if err != nil {
		return nil, "", err
	}

	// An explicit --config path must exist; the default location is optional.
	if opts.ConfigFilePath != "" && !found {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'fetchunroll config init --config " + opts.ConfigFilePath + "' to create it").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	resolvedPath := ""
	if found {
		if err := loadFileIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid " + strings.ToUpper(string(formatOf(path))) + " syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'fetchunroll config show' with no config file to see the defaults").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		resolvedPath = path
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("parse configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the FETCHUNROLL_* environment variables for malformed values").
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}

	// Environment values bypass the schema, so the typed rules run again here.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Fix the reported fields in the config file or environment").
			WithIssue(issue.InvalidConfigId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("http.backend", defaults.HTTP.Backend)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.user_agent", defaults.HTTP.UserAgent)
	v.SetDefault("http.max_redirects", defaults.HTTP.MaxRedirects)
	v.SetDefault("unroll.strip_components", defaults.Unroll.StripComponents)
	v.SetDefault("unroll.overwrite", defaults.Unroll.Overwrite)
	v.SetDefault("unroll.strip_when_alone", defaults.Unroll.StripWhenAlone)
	v.SetDefault("unroll.cleanup_dest", defaults.Unroll.CleanupDest)
	v.SetDefault("unroll.cleanup_on_error", defaults.Unroll.CleanupOnError)
	v.SetDefault("unroll.symlinks", defaults.Unroll.Symlinks)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// loadFileIntoViper validates a config file against the #Config schema and
// merges it into Viper, keeping defaults for keys the file leaves out.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	schema, err := cueutil.CompileSchema(configSchema, "#Config")
	if err != nil {
		return err
	}

	var configMap map[string]any
	switch formatOf(path) {
	case FormatTOML:
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
			return err
		}
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		configMap, err = schema.DecodeValue(doc, path)
	default:
		configMap, err = schema.DecodeCUE(data, path)
	}
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes cfg in the given format to the path FindConfigFile
// resolves for opts (with the extension of format when no explicit path is
// set). An existing file is only replaced when force is true.
func WriteDefault(opts LoadOptions, cfg *Config, format Format, force bool) (string, error) {
	path := opts.ConfigFilePath
	if path == "" {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return "", err
		}
		path = filepath.Join(cfgDir, ConfigFileName+"."+string(format))
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s: %w", path, ErrConfigExists)
	}

	var content []byte
	switch format {
	case FormatTOML:
		b, err := GenerateTOML(cfg)
		if err != nil {
			return path, err
		}
		content = b
	default:
		content = []byte(GenerateCUE(cfg))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// fetchunroll configuration file\n\n")

	sb.WriteString("http: {\n")
	fmt.Fprintf(&sb, "\tbackend: %q\n", cfg.HTTP.Backend)
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.HTTP.Timeout.String())
	if cfg.HTTP.UserAgent != "" {
		fmt.Fprintf(&sb, "\tuser_agent: %q\n", cfg.HTTP.UserAgent)
	}
	fmt.Fprintf(&sb, "\tmax_redirects: %d\n", cfg.HTTP.MaxRedirects)
	sb.WriteString("}\n")

	sb.WriteString("\nunroll: {\n")
	fmt.Fprintf(&sb, "\tstrip_components: %d\n", cfg.Unroll.StripComponents)
	fmt.Fprintf(&sb, "\toverwrite: %v\n", cfg.Unroll.Overwrite)
	fmt.Fprintf(&sb, "\tstrip_when_alone: %v\n", cfg.Unroll.StripWhenAlone)
	fmt.Fprintf(&sb, "\tcleanup_dest: %v\n", cfg.Unroll.CleanupDest)
	fmt.Fprintf(&sb, "\tcleanup_on_error: %v\n", cfg.Unroll.CleanupOnError)
	fmt.Fprintf(&sb, "\tsymlinks: %q\n", cfg.Unroll.Symlinks)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

type (
	tomlFile struct {
		HTTP   tomlHTTP     `toml:"http"`
		Unroll UnrollConfig `toml:"unroll"`
		UI     UIConfig     `toml:"ui"`
	}

	// tomlHTTP differs from HTTPConfig only in carrying the timeout as a
	// duration string.
	tomlHTTP struct {
		Backend      string `toml:"backend"`
		Timeout      string `toml:"timeout"`
		UserAgent    string `toml:"user_agent,omitempty"`
		MaxRedirects int    `toml:"max_redirects"`
	}
)

// GenerateTOML generates a TOML representation of the configuration.
func GenerateTOML(cfg *Config) ([]byte, error) {
	out, err := toml.Marshal(tomlFile{
		HTTP: tomlHTTP{
			Backend:      cfg.HTTP.Backend,
			Timeout:      cfg.HTTP.Timeout.String(),
			UserAgent:    cfg.HTTP.UserAgent,
			MaxRedirects: cfg.HTTP.MaxRedirects,
		},
		Unroll: cfg.Unroll,
		UI:     cfg.UI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return append([]byte("# fetchunroll configuration file\n\n"), out...), nil
}
