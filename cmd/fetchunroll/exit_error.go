// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// Exit codes of the fetchunroll binary.
const (
	ExitOK = 0
	// ExitUserError covers failures the user can fix by changing the
	// command: a 4xx response, an existing destination, an unsafe archive,
	// invalid flags or config.
	ExitUserError = 1
	// ExitTransient covers network failures, 5xx responses and I/O errors,
	// which may succeed on retry.
	ExitTransient = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
