package transport

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// WriteResult is one URL's outcome within a WriteToAll call.
type WriteResult struct {
	URL string
	OK  bool
	Err error
}

// WriteSummary is the aggregate output of WriteToAll.
type WriteSummary struct {
	Success        bool
	PartialSuccess bool
	SuccessCount   int
	FailureCount   int
	PerURL         []WriteResult
	SummaryMessage string
}

// WriteOptions configures a WriteToAll call.
type WriteOptions struct {
	// Sequential runs one URL at a time and stops at the first
	// authentication failure, instead of the default parallel fan-out
	// (which never short-circuits on transient failures).
	Sequential bool
}

// WriteToAll executes operation against every URL and reports per-URL
// results in input order regardless of completion order.
func WriteToAll(ctx context.Context, urls []string, opts WriteOptions, operation func(context.Context, string) error) WriteSummary {
	results := make([]WriteResult, len(urls))

	if opts.Sequential {
		for i, u := range urls {
			err := operation(ctx, u)
			results[i] = WriteResult{URL: u, OK: err == nil, Err: err}
			if err != nil && !retriable(err) {
				for j := i + 1; j < len(urls); j++ {
					results[j] = WriteResult{URL: urls[j], OK: false, Err: fmt.Errorf("skipped after auth failure on %s", u)}
				}
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, u := range urls {
			i, u := i, u
			g.Go(func() error {
				err := operation(gctx, u)
				results[i] = WriteResult{URL: u, OK: err == nil, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	var summary WriteSummary
	summary.PerURL = results
	for _, r := range results {
		if r.OK {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
	}
	summary.Success = summary.FailureCount == 0 && len(urls) > 0
	summary.PartialSuccess = summary.SuccessCount > 0
	summary.SummaryMessage = fmt.Sprintf("%d/%d remotes succeeded", summary.SuccessCount, len(urls))
	return summary
}
