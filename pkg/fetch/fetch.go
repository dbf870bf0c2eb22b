// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxRedirects is the number of redirects followed before giving up.
	DefaultMaxRedirects = 5

	// DefaultMaxBodyBytes bounds the body buffered by Fetch (1 GiB).
	DefaultMaxBodyBytes int64 = 1 << 30

	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "fetchunroll"

	// maxDrainBytes is how much of an error response body is read before the
	// connection is released.
	maxDrainBytes = 64 << 10
)

type (
	// Fetcher downloads resources over HTTP(S). It is safe for concurrent use.
	Fetcher struct {
		client       *http.Client
		baseClient   *http.Client // from WithHTTPClient; nil selects backend
		backend      Backend
		timeout      time.Duration
		userAgent    string
		maxRedirects int
		maxBodyBytes int64
		tlsConfig    *tls.Config
		header       http.Header
		logger       *log.Logger
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)

	// body converts read failures of a response body into NetworkError.
	body struct {
		rc  io.ReadCloser
		url string
	}
)

// WithBackend selects the HTTP backend. Ignored when WithHTTPClient is used.
func WithBackend(b Backend) Option {
	return func(f *Fetcher) {
		f.backend = b
	}
}

// WithTimeout bounds the whole exchange, including reading the body. Zero
// means no limit.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRedirects sets the redirect bound. Zero disables redirects.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		f.maxRedirects = max(n, 0)
	}
}

// WithMaxBodyBytes bounds the body buffered by Fetch. Get is not affected.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithTLSConfig sets the TLS client configuration, for private CAs or
// client certificates.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(f *Fetcher) {
		f.tlsConfig = cfg
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(f *Fetcher) {
		f.header.Add(key, value)
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithHTTPClient uses c instead of a backend-built client. Its redirect
// policy is replaced by the Fetcher's.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.baseClient = c
	}
}

// New creates a Fetcher. Defaults: DefaultBackend, no timeout,
// DefaultUserAgent, DefaultMaxRedirects, DefaultMaxBodyBytes.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		backend:      DefaultBackend(),
		userAgent:    DefaultUserAgent,
		maxRedirects: DefaultMaxRedirects,
		maxBodyBytes: DefaultMaxBodyBytes,
		header:       http.Header{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "fetchunroll", Level: log.WarnLevel})
	}

	if f.baseClient != nil {
		c := *f.baseClient
		f.client = &c
	} else {
		f.client = &http.Client{Transport: f.backend.RoundTripper(f.tlsConfig)}
	}
	if f.timeout > 0 {
		f.client.Timeout = f.timeout
	}
	f.client.CheckRedirect = f.checkRedirect
	return f
}

// Backend returns the name of the backend in use, or "custom" when the
// Fetcher wraps a caller-supplied client.
func (f *Fetcher) Backend() string {
	if f.baseClient != nil {
		return "custom"
	}
	return f.backend.Name()
}

// Get issues a GET for rawURL and returns the response body as a stream.
// The caller must close it. Read failures on the stream are *NetworkError.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	redacted := RedactURL(rawURL)

	u, err := parseURL(rawURL)
	if err != nil {
		return nil, &NetworkError{URL: redacted, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &NetworkError{URL: redacted, Err: fmt.Errorf("creating request: %w", err)}
	}
	for key, values := range f.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", f.userAgent)

	f.logger.Debug("fetching", "url", redacted, "backend", f.Backend())
	start := time.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: redacted, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) // release the connection
		_ = resp.Body.Close()
		return nil, &HTTPStatusError{URL: redacted, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	f.logger.Debug("response received",
		"url", redacted,
		"status", resp.StatusCode,
		"proto", resp.Proto,
		"length", resp.ContentLength,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &body{rc: resp.Body, url: redacted}, nil
}

// Fetch issues a GET for rawURL and returns the whole body. Bodies larger
// than the configured limit are a *NetworkError wrapping ErrBodyTooLarge.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rc, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }() // read-only response body

	limit := f.maxBodyBytes
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &NetworkError{URL: RedactURL(rawURL), Err: fmt.Errorf("%w of %d bytes", ErrBodyTooLarge, limit)}
	}
	return data, nil
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > f.maxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, f.maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w %q in redirect", ErrUnsupportedScheme, req.URL.Scheme)
	}
	f.logger.Debug("following redirect", "to", RedactURL(req.URL.String()), "hop", len(via))
	return nil
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &NetworkError{URL: b.url, Err: err}
	}
	return n, err
}

func (b *body) Close() error {
	return b.rc.Close()
}

// parseURL accepts absolute http and https URLs only.
func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, unwrapURLError(err))
	}
	switch u.Scheme {
	case "http", "https":
	case "":
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// RedactURL strips credentials, query parameters and fragments from a URL for safe inclusion
// in error messages and logs.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
