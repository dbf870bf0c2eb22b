// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
	"time"
)

// entryModTime is stamped on every generated entry so archives are
// byte-for-byte reproducible.
var entryModTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Entry describes one member of a generated tar archive.
type Entry struct {
	Name     string
	Body     string
	Typeflag byte
	Linkname string
	// Mode defaults to 0o644 for files and 0o755 for directories.
	Mode int64
}

// File returns a regular file entry.
func File(name, body string) Entry {
	return Entry{Name: name, Body: body, Typeflag: tar.TypeReg}
}

// Dir returns a directory entry. A trailing slash is added when missing.
func Dir(name string) Entry {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return Entry{Name: name, Typeflag: tar.TypeDir}
}

// Symlink returns a symbolic link entry pointing at target.
func Symlink(name, target string) Entry {
	return Entry{Name: name, Typeflag: tar.TypeSymlink, Linkname: target}
}

// Hardlink returns a hard link entry pointing at target.
func Hardlink(name, target string) Entry {
	return Entry{Name: name, Typeflag: tar.TypeLink, Linkname: target}
}

// Tree expands name/body pairs into entries. Names ending in "/" become
// directories and their body is ignored.
func Tree(pairs ...string) []Entry {
	entries := make([]Entry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.HasSuffix(pairs[i], "/") {
			entries = append(entries, Dir(pairs[i]))
			continue
		}
		entries = append(entries, File(pairs[i], pairs[i+1]))
	}
	return entries
}

// Tar writes entries into an uncompressed tar stream.
// The test fails immediately if an entry cannot be written.
func Tar(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		mode := e.Mode
		if mode == 0 {
			mode = 0o644
			if e.Typeflag == tar.TypeDir {
				mode = 0o755
			}
		}
		hdr := &tar.Header{
			Name:     e.Name,
			Typeflag: e.Typeflag,
			Linkname: e.Linkname,
			Mode:     mode,
			ModTime:  entryModTime,
		}
		if e.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header %q: %v", e.Name, err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write tar body %q: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	return buf.Bytes()
}

// Gzip compresses data.
func Gzip(t testing.TB, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("failed to write gzip stream: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// TarGz creates an in-memory tar.gz archive from entries.
func TarGz(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	return Gzip(t, Tar(t, entries...))
}
