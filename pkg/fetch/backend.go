// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
)

const (
	// BackendNetHTTP names the net/http backend.
	BackendNetHTTP = "nethttp"
	// BackendHTTP2 names the golang.org/x/net/http2 backend.
	BackendHTTP2 = "http2"
)

type (
	// Backend builds the round tripper a Fetcher sends requests through.
	Backend interface {
		// Name identifies the backend in configuration and logs.
		Name() string
		// RoundTripper returns a transport using tlsConfig for https requests.
		// A nil tlsConfig selects the system defaults.
		RoundTripper(tlsConfig *tls.Config) http.RoundTripper
	}

	netHTTPBackend struct{}

	http2Backend struct{}

	// schemeTransport sends https requests over HTTP/2 and everything else
	// over a plain HTTP/1.1 transport.
	schemeTransport struct {
		h2 *http2.Transport
		h1 *http.Transport
	}
)

// NetHTTP returns the net/http backend. HTTP/2 is negotiated through ALPN.
func NetHTTP() Backend { return netHTTPBackend{} }

// HTTP2 returns the golang.org/x/net/http2 backend.
func HTTP2() Backend { return http2Backend{} }

// Backends lists every available backend.
func Backends() []Backend {
	return []Backend{NetHTTP(), HTTP2()}
}

// BackendByName returns the backend registered under name. An empty name
// selects DefaultBackend.
func BackendByName(name string) (Backend, error) {
	if name == "" {
		return DefaultBackend(), nil
	}
	names := make([]string, 0, len(Backends()))
	for _, b := range Backends() {
		if strings.EqualFold(b.Name(), name) {
			return b, nil
		}
		names = append(names, b.Name())
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, name, strings.Join(names, ", "))
}

func (netHTTPBackend) Name() string { return BackendNetHTTP }

func (netHTTPBackend) RoundTripper(tlsConfig *tls.Config) http.RoundTripper {
	return newHTTP1Transport(tlsConfig, true)
}

func (http2Backend) Name() string { return BackendHTTP2 }

func (http2Backend) RoundTripper(tlsConfig *tls.Config) http.RoundTripper {
	h2 := &http2.Transport{}
	if tlsConfig != nil {
		h2.TLSClientConfig = tlsConfig.Clone()
	}
	return &schemeTransport{
		h2: h2,
		h1: newHTTP1Transport(tlsConfig, false),
	}
}

func (t *schemeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" {
		return t.h2.RoundTrip(req)
	}
	return t.h1.RoundTrip(req)
}

// CloseIdleConnections closes idle connections of both transports.
func (t *schemeTransport) CloseIdleConnections() {
	t.h2.CloseIdleConnections()
	t.h1.CloseIdleConnections()
}

func newHTTP1Transport(tlsConfig *tls.Config, attemptHTTP2 bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		t.TLSClientConfig = tlsConfig.Clone()
	}
	t.ForceAttemptHTTP2 = attemptHTTP2
	if !attemptHTTP2 {
		// A non-nil empty map disables the bundled HTTP/2 upgrade.
		t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	return t
}
