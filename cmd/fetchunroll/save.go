// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/fetchunroll"
)

type saveFlags struct {
	noOverwrite    bool
	noCreateDirs   bool
	fixInvalidDest bool
}

// newSaveCommand creates the `fetchunroll save` command.
func newSaveCommand(app *App, gf *globalFlags) *cobra.Command {
	var (
		sf saveFlags
		hf httpFlags
	)

	cmd := &cobra.Command{
		Use:   "save <url> <file>",
		Short: "Download an archive to a file without extracting it",
		Long: `Download <url> to <file>. The payload is written to a temporary file next
to <file> and renamed into place, so <file> never holds a partial download.`,
		Example: `  fetchunroll save https://example.com/tool-1.2.tar.gz ./downloads/tool.tar.gz
  fetchunroll save --no-overwrite https://example.com/tool-1.2.tar.gz ./tool.tar.gz`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return app.runSave(cmd, gf, &sf, &hf, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&sf.noOverwrite, "no-overwrite", false, "fail when <file> already exists")
	cmd.Flags().BoolVar(&sf.noCreateDirs, "no-create-dirs", false, "fail when the parent directory of <file> is missing")
	cmd.Flags().BoolVar(&sf.fixInvalidDest, "fix-invalid-dest", true, "replace a directory found at <file>")
	hf.register(cmd)

	return cmd
}

func (a *App) runSave(cmd *cobra.Command, gf *globalFlags, sf *saveFlags, hf *httpFlags, rawURL, path string) error {
	ctx := cmd.Context()

	s, err := a.newSession(ctx, gf)
	if err != nil {
		return fail(a.stderr, gf.verbose, "load configuration", "", err)
	}

	f, err := hf.fetcher(cmd, s.cfg.HTTP, s.logger)
	if err != nil {
		return fail(a.stderr, s.verbose, "apply flags", "", err)
	}

	overwrite := s.cfg.Unroll.Overwrite
	if cmd.Flags().Changed("no-overwrite") {
		overwrite = !sf.noOverwrite
	}

	redacted := fetch.RedactURL(rawURL)
	err = fetchunroll.FromSource(fetchunroll.URL(rawURL, f)).Save().
		Overwrite(overwrite).
		CreateDestPath(!sf.noCreateDirs).
		FixInvalidDest(sf.fixInvalidDest).
		Logger(s.logger).
		To(ctx, path)
	if err != nil {
		return fail(a.stderr, s.verbose, "save", redacted, err)
	}

	size := "saved"
	if info, statErr := os.Stat(path); statErr == nil {
		size = humanize.IBytes(uint64(info.Size()))
	}
	fmt.Fprintf(a.stdout, "%s Downloaded %s to %s (%s)\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(redacted), CmdStyle.Render(path), size)
	return nil
}
