package edinet

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds how many tickers resolve at once
const DefaultBatchConcurrency = 4

// BatchOptions configures ResolveBatch
type BatchOptions struct {
	Concurrency  int  // 0 means DefaultBatchConcurrency
	ForceRefresh bool // bypass the company info cache for every ticker
}

// BatchResult holds one Resolution per distinct ticker, in input order
type BatchResult struct {
	Results  []Resolution
	Resolved int // results with company info
}

// ResolveBatch resolves several tickers concurrently. Tickers are
// normalized and duplicates dropped, so each distinct ticker is resolved
// exactly once. Only a cancelled context produces an error.
func ResolveBatch(ctx context.Context, r *Resolver, tickers []string, opts BatchOptions) (*BatchResult, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("at least one ticker is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultBatchConcurrency
	}

	seen := make(map[string]bool, len(tickers))
	unique := make([]string, 0, len(tickers))
	for _, t := range tickers {
		n := NormalizeTicker(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		unique = append(unique, n)
	}

	results := make([]Resolution, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, ticker := range unique {
		g.Go(func() error {
			results[i] = r.ResolveDetailed(gctx, ticker, opts.ForceRefresh)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	out := &BatchResult{Results: results}
	for _, res := range results {
		if res.Info != nil {
			out.Resolved++
		}
	}
	return out, nil
}
