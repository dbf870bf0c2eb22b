// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/fetchunroll/pkg/fetchunroll"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

// stdinArg selects standard input as the archive.
const stdinArg = "-"

// newUnrollCommand creates the `fetchunroll unroll` command.
func newUnrollCommand(app *App, gf *globalFlags) *cobra.Command {
	var uf unrollFlags

	cmd := &cobra.Command{
		Use:   "unroll <archive|-> <dest>",
		Short: "Extract a local .tar.gz archive",
		Long: `Extract a gzip-compressed tar archive from a file, or from standard
input when the archive is "-", with the same rules as 'fetchunroll get'.`,
		Example: `  fetchunroll unroll ./tool-1.2.tar.gz ./tool -s 1
  curl -sL https://example.com/a.tar.gz | fetchunroll unroll - ./a`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return app.runUnroll(cmd, gf, &uf, args[0], args[1])
		},
	}

	uf.register(cmd)

	return cmd
}

func (a *App) runUnroll(cmd *cobra.Command, gf *globalFlags, uf *unrollFlags, archive, dest string) error {
	ctx := cmd.Context()

	s, err := a.newSession(ctx, gf)
	if err != nil {
		return fail(a.stderr, gf.verbose, "load configuration", "", err)
	}

	opts, err := uf.options(cmd, s.cfg.Unroll, s.logger)
	if err != nil {
		return fail(a.stderr, s.verbose, "apply flags", "", err)
	}

	src := fetchunroll.File(archive)
	if archive == stdinArg {
		src = fetchunroll.Reader(a.stdin)
	}

	if err := fetchunroll.FetchUnrollWithConfig(ctx, src, dest, unroll.NewConfig(opts...)); err != nil {
		return fail(a.stderr, s.verbose, "extract", src.String(), err)
	}

	fmt.Fprintf(a.stdout, "%s Extracted %s into %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(src.String()), CmdStyle.Render(dest))
	return nil
}
