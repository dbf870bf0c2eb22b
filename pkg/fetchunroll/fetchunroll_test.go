// SPDX-License-Identifier: MPL-2.0

package fetchunroll

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/invowk/fetchunroll/internal/testutil"
	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

func sampleArchive(t *testing.T) []byte {
	t.Helper()
	return testutil.TarGz(t,
		testutil.Dir("a"),
		testutil.File("a/b.txt", "bee"),
		testutil.Dir("a/c"),
		testutil.File("a/c/d.txt", "dee"),
	)
}

func serveArchive(t *testing.T, data []byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/archive.tar.gz" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchUnroll_URL(t *testing.T) {
	t.Parallel()

	srv := serveArchive(t, sampleArchive(t))
	dest := filepath.Join(t.TempDir(), "out")

	err := FetchUnroll(context.Background(), URL(srv.URL+"/archive.tar.gz", nil), dest, unroll.WithStripComponents(1))
	if err != nil {
		t.Fatalf("FetchUnroll() error = %v", err)
	}

	if got := testutil.ReadFile(t, filepath.Join(dest, "b.txt")); got != "bee" {
		t.Errorf("b.txt = %q, want %q", got, "bee")
	}
	if got := testutil.ReadFile(t, filepath.Join(dest, "c", "d.txt")); got != "dee" {
		t.Errorf("c/d.txt = %q, want %q", got, "dee")
	}
}

func TestFetchUnroll_NotFoundExtractsNothing(t *testing.T) {
	t.Parallel()

	srv := serveArchive(t, sampleArchive(t))
	dest := filepath.Join(t.TempDir(), "out")

	err := FetchUnroll(context.Background(), URL(srv.URL+"/missing.tar.gz", nil), dest)

	var statusErr *fetch.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *fetch.HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusNotFound)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("destination must not be created on HTTP error, stat error = %v", statErr)
	}
}

func TestFetchUnroll_CorruptPayload(t *testing.T) {
	t.Parallel()

	srv := serveArchive(t, []byte("<html>not an archive</html>"))
	dest := filepath.Join(t.TempDir(), "out")

	err := FetchUnroll(context.Background(), URL(srv.URL+"/archive.tar.gz", nil), dest)

	var decompErr *unroll.DecompressionError
	if !errors.As(err, &decompErr) {
		t.Fatalf("expected *unroll.DecompressionError, got %T: %v", err, err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("destination must not be created on decompression error, stat error = %v", statErr)
	}
}

func TestFetchUnroll_TruncatedResponseIsNetworkError(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)*2))
		_, _ = w.Write(data[:len(data)/2])
	}))
	defer srv.Close()

	err := FetchUnroll(context.Background(), URL(srv.URL, nil), t.TempDir())

	var netErr *fetch.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *fetch.NetworkError, got %T: %v", err, err)
	}
}

func TestFetchUnroll_Bytes(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	if err := FetchUnroll(context.Background(), Bytes(sampleArchive(t)), dest); err != nil {
		t.Fatalf("FetchUnroll() error = %v", err)
	}
	if got := testutil.ReadFile(t, filepath.Join(dest, "a", "b.txt")); got != "bee" {
		t.Errorf("a/b.txt = %q, want %q", got, "bee")
	}
}

func TestFetchUnroll_File(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(archive, sampleArchive(t), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}

	dest := t.TempDir()
	if err := FetchUnroll(context.Background(), File(archive), dest, unroll.WithStripComponents(2)); err != nil {
		t.Fatalf("FetchUnroll() error = %v", err)
	}
	if got := testutil.ReadFile(t, filepath.Join(dest, "d.txt")); got != "dee" {
		t.Errorf("d.txt = %q, want %q", got, "dee")
	}

	err := FetchUnroll(context.Background(), File(filepath.Join(t.TempDir(), "missing.tar.gz")), dest)

	var fsErr *unroll.FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("expected *unroll.FilesystemError for a missing archive, got %T: %v", err, err)
	}
}

func TestFetchUnroll_InvalidConfigBeforeOpen(t *testing.T) {
	t.Parallel()

	src := &countingSource{Source: Bytes(sampleArchive(t))}
	err := FetchUnroll(context.Background(), src, t.TempDir(), unroll.WithStripComponents(-1))
	if !errors.Is(err, unroll.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if src.opened != 0 {
		t.Errorf("source opened %d times, want 0", src.opened)
	}
}

func TestReaderSource_DoesNotClose(t *testing.T) {
	t.Parallel()

	r := &closeTracker{Reader: bytes.NewReader(sampleArchive(t))}
	if err := FetchUnroll(context.Background(), Reader(r), t.TempDir()); err != nil {
		t.Fatalf("FetchUnroll() error = %v", err)
	}
	if r.closed {
		t.Error("Reader source must not close the caller's reader")
	}
}

func TestBuilder_Unroll(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	data := sampleArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	dest := t.TempDir()
	err := FromURL(srv.URL, fetch.WithUserAgent("builder-test")).
		Unroll().
		StripComponents(1).
		Symlinks(unroll.SymlinkReject).
		To(context.Background(), dest)
	if err != nil {
		t.Fatalf("To() error = %v", err)
	}

	if got := <-agents; got != "builder-test" {
		t.Errorf("User-Agent = %q, want %q", got, "builder-test")
	}
	if got := testutil.ReadFile(t, filepath.Join(dest, "c", "d.txt")); got != "dee" {
		t.Errorf("c/d.txt = %q, want %q", got, "dee")
	}
}

func TestBuilder_OverwriteDisabled(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	if err := FromBytes(sampleArchive(t)).Unroll().To(context.Background(), dest); err != nil {
		t.Fatalf("first To() error = %v", err)
	}

	err := FromBytes(sampleArchive(t)).Unroll().Overwrite(false).To(context.Background(), dest)

	var fsErr *unroll.FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("expected *unroll.FilesystemError, got %T: %v", err, err)
	}
	if !errors.Is(err, unroll.ErrDestinationExists) {
		t.Errorf("expected ErrDestinationExists, got %v", err)
	}
}

func TestBuilder_Config(t *testing.T) {
	t.Parallel()

	cfg := FromBytes(nil).Unroll().
		StripComponents(2).
		CreateDest(false).
		CleanupDest(true).
		FixInvalidDest(false).
		CleanupOnError(true).
		StripWhenAlone(true).
		MaxBytes(1 << 20).
		Config()

	want := unroll.Config{
		StripComponents: 2,
		Overwrite:       true,
		CreateDest:      false,
		CleanupDest:     true,
		FixInvalidDest:  false,
		CleanupOnError:  true,
		StripWhenAlone:  true,
		Symlinks:        unroll.SymlinkSkip,
		MaxBytes:        1 << 20,
	}
	if cfg != want {
		t.Errorf("Config() = %+v, want %+v", cfg, want)
	}
}

type countingSource struct {
	Source
	opened int
}

func (s *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opened++
	return s.Source.Open(ctx)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}
