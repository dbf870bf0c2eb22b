// SPDX-License-Identifier: MPL-2.0

//go:build !fetchunroll_http2

package fetch

// DefaultBackend returns the backend used when none is configured.
func DefaultBackend() Backend { return NetHTTP() }
