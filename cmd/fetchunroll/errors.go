// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/invowk/fetchunroll/internal/config"
	"github.com/invowk/fetchunroll/internal/issue"
	"github.com/invowk/fetchunroll/pkg/cueutil"
	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

var suggestions = map[issue.Id][]string{
	issue.NetworkErrorId: {
		"Check your network connection and retry",
		"Raise the timeout with --timeout for large archives",
	},
	issue.HTTPStatusErrorId: {
		"Check that the URL points at an existing .tar.gz file",
	},
	issue.InvalidURLId: {
		"Use an absolute http:// or https:// URL",
	},
	issue.DecompressionFailedId: {
		"Make sure the URL serves a gzip-compressed tar archive, not an HTML page",
	},
	issue.ArchiveInvalidId: {
		"Download the archive again; it may be truncated",
	},
	issue.UnsafeArchiveEntryId: {
		"Inspect the archive with 'tar -tzvf' before trusting it",
	},
	issue.ArchiveTooLargeId: {
		"Raise the limit with --max-bytes if the archive is trusted",
	},
	issue.DestinationExistsId: {
		"Drop --no-overwrite or choose an empty destination",
	},
	issue.NotDirectoryId: {
		"Remove the file in the way or pass --fix-invalid-dest",
	},
	issue.PermissionDeniedId: {
		"Choose a destination the current user can write to",
	},
	issue.FilesystemErrorId: {
		"Check the free space and permissions of the destination",
	},
	issue.InvalidConfigId: {
		"Run 'fetchunroll <command> --help' for the accepted values",
	},
}

// classifyError maps a failure to its remediation guide and exit code.
// Failures the user can fix by changing the command exit with ExitUserError;
// everything that may pass on retry exits with ExitTransient.
func classifyError(err error) (issue.Id, int) {
	var (
		statusErr *fetch.HTTPStatusError
		netErr    *fetch.NetworkError
		decErr    *unroll.DecompressionError
		archErr   *unroll.ArchiveError
		fsErr     *unroll.FilesystemError
		valErr    *cueutil.ValidationError
		ae        *issue.ActionableError
	)

	switch {
	case errors.As(err, &statusErr):
		if statusErr.Temporary() {
			return issue.HTTPStatusErrorId, ExitTransient
		}
		return issue.HTTPStatusErrorId, ExitUserError
	case errors.Is(err, fetch.ErrInvalidURL), errors.Is(err, fetch.ErrUnsupportedScheme):
		return issue.InvalidURLId, ExitUserError
	case errors.As(err, &netErr):
		return issue.NetworkErrorId, ExitTransient
	case errors.As(err, &decErr):
		return issue.DecompressionFailedId, ExitUserError
	case errors.Is(err, unroll.ErrPathTraversal), errors.Is(err, unroll.ErrLinkEntry):
		return issue.UnsafeArchiveEntryId, ExitUserError
	case errors.Is(err, unroll.ErrArchiveTooLarge):
		return issue.ArchiveTooLargeId, ExitUserError
	case errors.As(err, &archErr):
		return issue.ArchiveInvalidId, ExitUserError
	case errors.Is(err, unroll.ErrDestinationExists):
		return issue.DestinationExistsId, ExitUserError
	case errors.Is(err, unroll.ErrNotDirectory):
		return issue.NotDirectoryId, ExitUserError
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId, ExitUserError
	case errors.Is(err, fs.ErrNotExist):
		return issue.FilesystemErrorId, ExitUserError
	case errors.As(err, &fsErr):
		return issue.FilesystemErrorId, ExitTransient
	case errors.Is(err, errInvalidFlag),
		errors.Is(err, unroll.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidHTTPConfig),
		errors.Is(err, config.ErrInvalidUnrollConfig),
		errors.Is(err, config.ErrInvalidLoadOptions),
		errors.Is(err, fetch.ErrUnknownBackend),
		errors.Is(err, cueutil.ErrFileTooLarge),
		errors.As(err, &valErr):
		return issue.InvalidConfigId, ExitUserError
	case errors.Is(err, config.ErrConfigExists):
		return 0, ExitUserError
	case errors.As(err, &ae) && ae.IssueID != 0:
		return ae.IssueID, ExitUserError
	}
	return 0, ExitTransient
}

// describeError wraps err with the failed operation and the suggestions of
// its guide. Errors that already carry that context are returned as is.
func describeError(op, resource string, err error) (*issue.ActionableError, int) {
	id, code := classifyError(err)

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae, code
	}

	return issue.NewErrorContext().
		WithOperation(op).
		WithResource(resource).
		WithSuggestions(suggestions[id]...).
		WithIssue(id).
		Wrap(err).
		Build(), code
}

// fail prints err for the user and converts it to an ExitError.
func fail(stderr io.Writer, verbose bool, op, resource string, err error) error {
	ae, code := describeError(op, resource, err)
	renderError(stderr, ae, verbose)
	return &ExitError{Code: code, Err: ae}
}

// renderError prints the styled error. In verbose mode the error chain and
// the issue guide follow.
func renderError(stderr io.Writer, ae *issue.ActionableError, verbose bool) {
	fmt.Fprintf(stderr, "%s %s\n", ErrorStyle.Render("Error:"), ae.Format(verbose))

	if !verbose {
		return
	}
	guide := ae.Issue()
	if guide == nil {
		return
	}
	rendered, err := guide.Render(guideStyle(stderr))
	if err != nil {
		log.Warn("failed to render issue guide", "issueID", ae.IssueID, "error", err)
		return
	}
	fmt.Fprint(stderr, rendered)
}

// guideStyle picks the glamour style: colors on a terminal, plain text
// otherwise.
func guideStyle(w io.Writer) string {
	f, ok := w.(*os.File)
	if !ok {
		return "notty"
	}
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return "notty"
	}
	return "dark"
}
