// SPDX-License-Identifier: MPL-2.0

package unroll

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the unroll options are not usable.
	ErrInvalidConfig = errors.New("invalid unroll configuration")
	// ErrPathTraversal is wrapped by ArchiveError when an entry would resolve
	// outside the destination directory.
	ErrPathTraversal = errors.New("path escapes destination directory")
	// ErrLinkEntry is wrapped by ArchiveError when a symlink or hard link entry
	// is found and the policy is SymlinkReject.
	ErrLinkEntry = errors.New("link entries are not allowed")
	// ErrArchiveTooLarge is wrapped by ArchiveError when the decompressed
	// archive exceeds the configured size bound.
	ErrArchiveTooLarge = errors.New("decompressed archive exceeds size limit")
	// ErrDestinationExists is wrapped by FilesystemError when a file already
	// exists and overwriting is disabled.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrNotDirectory is wrapped by FilesystemError when a path that must be a
	// directory is something else.
	ErrNotDirectory = errors.New("not a directory")
)

type (
	// DecompressionError reports an invalid gzip stream.
	DecompressionError struct {
		Err error
	}

	// ArchiveError reports an invalid tar structure or an entry that cannot be
	// extracted safely. Entry is the name stored in the archive, empty when the
	// failure is not tied to a single entry.
	ArchiveError struct {
		Entry string
		Err   error
	}

	// FilesystemError reports a failed filesystem operation on Path.
	FilesystemError struct {
		Op   string
		Path string
		Err  error
	}
)

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("decompressing archive: %v", e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}

func (e *ArchiveError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("invalid archive: %v", e.Err)
	}
	return fmt.Sprintf("archive entry %q: %v", e.Entry, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
