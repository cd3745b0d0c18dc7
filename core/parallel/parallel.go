// Package parallel splits index ranges across a fixed-size worker pool.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves an n_jobs setting to a worker count: 0 and 1 mean
// sequential, -1 means one worker per CPU, n > 1 means n workers. Other
// negative values count back from the CPU count as in scikit-learn
// (-2 is all CPUs but one), with a floor of 1.
func Workers(nJobs int) int {
	switch {
	case nJobs == 0 || nJobs == 1:
		return 1
	case nJobs > 1:
		return nJobs
	default:
		n := runtime.NumCPU() + 1 + nJobs
		if n < 1 {
			return 1
		}
		return n
	}
}

// Parallelize divides items into at most workers contiguous ranges
// [start, end) and runs fn on each range concurrently. Range boundaries
// depend only on items and workers.
//
// The first error returned by any fn cancels ctx for the remaining ranges
// and is returned once all goroutines have exited.
func Parallelize(ctx context.Context, items, workers int, fn func(ctx context.Context, start, end int) error) error {
	if items <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items // No need for more workers than items
	}
	if workers == 1 {
		return fn(ctx, 0, items)
	}

	// Ceiling division so that every item is covered
	chunkSize := (items + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		// Skip if there's no range to handle
		if start >= end {
			continue
		}

		g.Go(func() error {
			return fn(gctx, start, end)
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and delegates to Parallelize otherwise.
func ParallelizeWithThreshold(ctx context.Context, items, threshold, workers int, fn func(ctx context.Context, start, end int) error) error {
	if items <= threshold {
		if items <= 0 {
			return nil
		}
		return fn(ctx, 0, items)
	}
	return Parallelize(ctx, items, workers, fn)
}
