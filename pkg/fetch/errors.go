// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrInvalidURL is wrapped by NetworkError when the URL cannot be parsed
	// or has no host.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrUnsupportedScheme is wrapped by NetworkError for schemes other than
	// http and https, including redirect targets.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrTooManyRedirects is wrapped by NetworkError when the redirect bound
	// is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrBodyTooLarge is wrapped by NetworkError when Fetch reads more than
	// the configured body limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
	// ErrUnknownBackend is returned by BackendByName.
	ErrUnknownBackend = errors.New("unknown HTTP backend")
)

type (
	// NetworkError reports a failure to obtain the response or its body:
	// DNS, connect, TLS, timeout, redirect policy or a broken stream. URL has
	// its query and fragment redacted.
	NetworkError struct {
		URL string
		Err error
	}

	// HTTPStatusError reports a response whose status is outside 2xx.
	HTTPStatusError struct {
		URL        string
		StatusCode int
		Status     string
	}
)

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, unwrapURLError(e.Err))
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *HTTPStatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: unexpected status %s", e.URL, e.Status)
}

// Temporary reports whether the status usually clears on its own: 5xx,
// 408 and 429.
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408 || e.StatusCode == 429
}

// unwrapURLError drops the *url.Error layer added by net/http, whose message
// repeats the method and the unredacted URL.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
