// SPDX-License-Identifier: MPL-2.0

// Package fetchunroll downloads a .tar.gz archive and extracts it into a
// directory in one call.
//
// The archive comes from a Source: a URL fetched with pkg/fetch, in-memory
// bytes, a local file or any reader. FetchUnroll streams the source straight
// into pkg/unroll and returns the first error unchanged, so callers can match
// *fetch.HTTPStatusError, *unroll.ArchiveError and the rest with errors.As.
// Extraction is not transactional.
//
// Save writes the raw payload to a single file instead of extracting it.
//
// The builder reads left to right:
//
//	err := fetchunroll.FromURL("https://example.com/tool-1.2.tar.gz").
//		Unroll().
//		StripComponents(1).
//		To(ctx, "third_party/tool")
package fetchunroll
