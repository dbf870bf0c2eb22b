// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for fetchunroll.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// NewRootCommand builds the command tree for one invocation.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "fetchunroll",
		Short: "Download a .tar.gz archive and extract it into a directory",
		Long: TitleStyle.Render("fetchunroll") + SubtitleStyle.Render(" - download and unpack tar.gz archives") + `

fetchunroll downloads a gzip-compressed tar archive over HTTP(S) and
extracts it into a destination directory, optionally stripping leading
path components. Entries that would escape the destination are refused.

` + SubtitleStyle.Render("Examples:") + `
  fetchunroll get https://example.com/tool-1.2.tar.gz ./tool -s 1
  fetchunroll unroll ./tool-1.2.tar.gz ./tool
  curl -sL https://example.com/a.tar.gz | fetchunroll unroll - ./a
  fetchunroll save https://example.com/tool-1.2.tar.gz ./downloads/tool.tar.gz
  fetchunroll config show`,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/fetchunroll/config.cue)")

	rootCmd.AddCommand(
		newGetCommand(app, flags),
		newUnrollCommand(app, flags),
		newSaveCommand(app, flags),
		newConfigCommand(app, flags),
		newCompletionCommand(),
	)

	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// Execute runs the CLI and exits with the code of the first failure.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitUserError)
	}
}
