// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads a single resource over HTTP(S).
//
// A Fetcher performs one GET per call and follows redirects up to a bound.
// Transport failures are reported as *NetworkError and non-2xx responses as
// *HTTPStatusError. Requests are never retried.
//
// The HTTP stack is pluggable through Backend:
//   - nethttp: net/http with crypto/tls, negotiating HTTP/2 through ALPN
//   - http2: golang.org/x/net/http2 for https, plain HTTP/1.1 otherwise
//
// Both backends are always compiled. The default is nethttp unless the binary
// is built with the fetchunroll_http2 tag.
package fetch
