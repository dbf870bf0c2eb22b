// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/fetchunroll/internal/config"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives an App reference.
	App struct {
		Config    ConfigProvider
		configDir string
		stdin     io.Reader
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// ConfigDirPath overrides the platform config directory.
		ConfigDirPath string
		Stdin         io.Reader
		Stdout        io.Writer
		Stderr        io.Writer
	}

	// globalFlags holds the persistent flag values of one invocation.
	globalFlags struct {
		configPath string
		verbose    bool
	}

	// session is the resolved state a command runs with: the loaded config
	// with the verbosity and logger derived from it.
	session struct {
		cfg     *config.Config
		verbose bool
		logger  *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config:    deps.Config,
		configDir: deps.ConfigDirPath,
		stdin:     deps.Stdin,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

func (a *App) loadOptions(flags *globalFlags) config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ConfigDirPath:  a.configDir,
	}
}

// newSession loads the configuration for one command run. The --verbose
// flag wins over ui.verbose from the config.
func (a *App) newSession(ctx context.Context, flags *globalFlags) (*session, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions(flags))
	if err != nil {
		return nil, err
	}

	verbose := flags.verbose || cfg.UI.Verbose
	return &session{
		cfg:     cfg,
		verbose: verbose,
		logger:  newLogger(a.stderr, verbose),
	}, nil
}

// newLogger builds the stderr logger handed to the library packages: warnings
// only by default, per-entry decisions with --verbose.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}
