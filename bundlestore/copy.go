package bundlestore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CopyAll copies every bundle under prefix from src to dst, fanning out to
// at most concurrency parallel transfers. The first failure cancels the
// remaining transfers.
//
// This is a migration helper, not part of the single-threaded training
// path; it never touches model or engine state.
func CopyAll(ctx context.Context, src, dst Store, prefix string, concurrency int) error {
	names, err := src.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("bundlestore: list source: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, name := range names {
		g.Go(func() error {
			data, err := src.Get(ctx, name)
			if err != nil {
				return fmt.Errorf("bundlestore: copy %q: %w", name, err)
			}
			if err := dst.Put(ctx, name, data); err != nil {
				return fmt.Errorf("bundlestore: copy %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
