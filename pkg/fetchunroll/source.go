// SPDX-License-Identifier: MPL-2.0

package fetchunroll

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/invowk/fetchunroll/pkg/fetch"
	"github.com/invowk/fetchunroll/pkg/unroll"
)

type (
	// Source yields the compressed archive. Open is called once per
	// operation; the caller closes the returned reader.
	Source interface {
		Open(ctx context.Context) (io.ReadCloser, error)
		// String describes the source for logs and error messages.
		String() string
	}

	urlSource struct {
		url     string
		fetcher *fetch.Fetcher
	}

	bytesSource struct {
		data []byte
	}

	fileSource struct {
		path string
	}

	readerSource struct {
		r io.Reader
	}
)

// URL returns a Source that downloads u with f. A nil f uses fetch.New().
func URL(u string, f *fetch.Fetcher) Source {
	if f == nil {
		f = fetch.New()
	}
	return &urlSource{url: u, fetcher: f}
}

// Bytes returns a Source over an in-memory archive.
func Bytes(b []byte) Source {
	return &bytesSource{data: b}
}

// File returns a Source reading the archive at path.
func File(path string) Source {
	return &fileSource{path: path}
}

// Reader returns a Source over r. Open does not take ownership: closing the
// returned reader leaves r open.
func Reader(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *urlSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.fetcher.Get(ctx, s.url)
}

func (s *urlSource) String() string { return s.url }

func (s *bytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *bytesSource) String() string { return fmt.Sprintf("<%d bytes>", len(s.data)) }

func (s *fileSource) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &unroll.FilesystemError{Op: "open archive", Path: s.path, Err: err}
	}
	return f, nil
}

func (s *fileSource) String() string { return s.path }

func (s *readerSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(s.r), nil
}

func (s *readerSource) String() string { return "<reader>" }
