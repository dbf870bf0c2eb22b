// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/invowk/fetchunroll/internal/config"
	"github.com/invowk/fetchunroll/internal/issue"
)

// newConfigCommand creates the `fetchunroll config` command tree.
func newConfigCommand(app *App, gf *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fetchunroll configuration",
		Long: `Manage fetchunroll configuration.

Configuration is read from config.cue or config.toml in:
  - Linux: ~/.config/fetchunroll/
  - macOS: ~/Library/Application Support/fetchunroll/
  - Windows: %APPDATA%\fetchunroll\

FETCHUNROLL_* environment variables override the file, e.g.
FETCHUNROLL_HTTP_TIMEOUT=30m. Command-line flags override both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return app.showConfig(cmd, gf)
		},
	})

	var (
		format string
		force  bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return app.initConfig(gf, format, force)
		},
	}
	initCmd.Flags().StringVar(&format, "format", string(config.FormatCUE), "file format: cue or toml")
	initCmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return app.showConfigPath(gf)
		},
	})

	return cfgCmd
}

func (a *App) showConfig(cmd *cobra.Command, gf *globalFlags) error {
	s, err := a.newSession(cmd.Context(), gf)
	if err != nil {
		return fail(a.stderr, gf.verbose, "load configuration", "", err)
	}

	path, found, err := config.FindConfigFile(a.loadOptions(gf))
	if err != nil {
		return fail(a.stderr, s.verbose, "locate configuration", "", err)
	}

	w := a.stdout
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if found {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	backend := s.cfg.HTTP.Backend
	if backend == "" {
		backend = "(build default)"
	}
	userAgent := s.cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = "(default)"
	}

	printSection(w, "http")
	printValue(w, "backend", backend)
	printValue(w, "timeout", s.cfg.HTTP.Timeout.String())
	printValue(w, "user_agent", userAgent)
	printValue(w, "max_redirects", s.cfg.HTTP.MaxRedirects)

	printSection(w, "unroll")
	printValue(w, "strip_components", s.cfg.Unroll.StripComponents)
	printValue(w, "overwrite", s.cfg.Unroll.Overwrite)
	printValue(w, "strip_when_alone", s.cfg.Unroll.StripWhenAlone)
	printValue(w, "cleanup_dest", s.cfg.Unroll.CleanupDest)
	printValue(w, "cleanup_on_error", s.cfg.Unroll.CleanupOnError)
	printValue(w, "symlinks", s.cfg.Unroll.Symlinks)

	printSection(w, "ui")
	printValue(w, "verbose", s.cfg.UI.Verbose)

	return nil
}

func printSection(w io.Writer, name string) {
	fmt.Fprintf(w, "\n%s\n", SubtitleStyle.Render("["+name+"]"))
}

func printValue(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "  %s: %s\n", CmdStyle.Render(key), SuccessStyle.Render(fmt.Sprint(value)))
}

func (a *App) initConfig(gf *globalFlags, rawFormat string, force bool) error {
	format, err := config.ParseFormat(rawFormat)
	if err != nil {
		return fail(a.stderr, gf.verbose, "write configuration", "", fmt.Errorf("%w: --format: %v", errInvalidFlag, err))
	}

	path, err := config.WriteDefault(a.loadOptions(gf), config.DefaultConfig(), format, force)
	if errors.Is(err, config.ErrConfigExists) {
		err = issue.NewErrorContext().
			WithOperation("write configuration").
			WithSuggestion("Pass --force to replace the existing file").
			Wrap(err).
			BuildError()
	}
	if err != nil {
		return fail(a.stderr, gf.verbose, "write configuration", path, err)
	}

	fmt.Fprintf(a.stdout, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
	return nil
}

func (a *App) showConfigPath(gf *globalFlags) error {
	path, found, err := config.FindConfigFile(a.loadOptions(gf))
	if err != nil {
		return fail(a.stderr, gf.verbose, "locate configuration", "", err)
	}

	fmt.Fprintln(a.stdout, path)
	if !found {
		fmt.Fprintln(a.stderr, WarningStyle.Render("(file does not exist; run 'fetchunroll config init' to create it)"))
	}
	return nil
}
