// SPDX-License-Identifier: MPL-2.0

// Package unroll extracts gzip-compressed tar archives into a destination
// directory.
//
// The gzip stream is decompressed into a temporary spool file before the
// destination is touched, so a corrupt payload is reported as a
// DecompressionError without any filesystem side effects. Entries are then
// written one by one after stripping the configured number of leading path
// components. Entries that would land outside the destination are rejected
// with an ArchiveError wrapping ErrPathTraversal.
//
// Symbolic and hard links are never recreated: depending on the configured
// SymlinkPolicy they are either skipped or rejected.
//
// Extraction is not transactional. Unless CleanupOnError is enabled, entries
// written before a failure remain on disk.
package unroll
