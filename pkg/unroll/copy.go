// SPDX-License-Identifier: MPL-2.0

package unroll

import (
	"errors"
	"io"
	"sync"
)

//nolint:gochecknoglobals // Shared copy buffers; per-call state lives in the caller.
var bufPool = &sync.Pool{
	New: func() any {
		buffer := make([]byte, 64*1024)
		return &buffer
	},
}

// copyBuffered copies src into dst through a pooled buffer. Read and write
// failures are returned separately so callers can attribute them to the
// archive or to the filesystem.
func copyBuffered(dst io.Writer, src io.Reader) (written int64, readErr, writeErr error) {
	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)

	for {
		nr, er := src.Read(*buf)
		if nr > 0 {
			nw, ew := dst.Write((*buf)[:nr])
			if ew != nil {
				return written, nil, ew
			}
			if nr != nw {
				return written, nil, io.ErrShortWrite
			}
			written += int64(nw)
		}
		if er != nil {
			if errors.Is(er, io.EOF) {
				return written, nil, nil
			}
			return written, er, nil
		}
	}
}
