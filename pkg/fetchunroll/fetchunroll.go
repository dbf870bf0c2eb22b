// SPDX-License-Identifier: MPL-2.0

package fetchunroll

import (
	"context"

	"github.com/invowk/fetchunroll/pkg/unroll"
)

// FetchUnroll opens src and extracts the archive into dest. The first error
// is returned as is: a source failure (for URLs *fetch.NetworkError or
// *fetch.HTTPStatusError) means nothing was extracted.
func FetchUnroll(ctx context.Context, src Source, dest string, opts ...unroll.Option) error {
	return FetchUnrollWithConfig(ctx, src, dest, unroll.NewConfig(opts...))
}

// FetchUnrollWithConfig is FetchUnroll with an explicit unroll.Config.
func FetchUnrollWithConfig(ctx context.Context, src Source, dest string, cfg unroll.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }() // read-only source

	return unroll.UnrollWithConfig(ctx, rc, dest, cfg)
}
