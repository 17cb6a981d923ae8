package transport

import (
	"context"
	"time"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// Attempt records the outcome of one URL try within a ReadFallback call.
type Attempt struct {
	URL        string
	OK         bool
	ErrorCode  string
	DurationMs int64
}

// ReadResult is the output of ReadFallback.
type ReadResult[T any] struct {
	Success      bool
	Result       T
	UsedURL      string
	Attempts     []Attempt
	SuccessIndex int
}

// ReadOptions configures a single ReadFallback call.
type ReadOptions struct {
	// PerURLTimeout bounds every URL attempt except the last, which is
	// always given unlimited time.
	PerURLTimeout time.Duration
	// TryAll requests every URL be attempted even after a success, so the
	// caller can validate them all rather than short-circuiting.
	TryAll bool
	// IsGitHostable, when non-nil, filters out pseudo-URLs (e.g. a relay
	// scheme) that cannot host Git objects before attempting them.
	IsGitHostable func(url string) bool
}

// DefaultPerURLTimeout is the §5 default of 15 seconds.
const DefaultPerURLTimeout = 15 * time.Second

// ReadFallback tries operation against urls one at a time in preference
// order, stopping at the first success unless opts.TryAll is set. The last
// URL attempted is never subject to the per-URL timeout.
func ReadFallback[T any](ctx context.Context, cache *PreferenceCache, craKey string, urls []string, opts ReadOptions, operation func(context.Context, string) (T, error)) ReadResult[T] {
	if opts.PerURLTimeout == 0 {
		opts.PerURLTimeout = DefaultPerURLTimeout
	}

	ordered := urls
	if cache != nil {
		ordered = cache.reorder(craKey, urls)
	}
	if opts.IsGitHostable != nil {
		filtered := ordered[:0:0]
		for _, u := range ordered {
			if opts.IsGitHostable(u) {
				filtered = append(filtered, u)
			}
		}
		ordered = filtered
	}

	var result ReadResult[T]
	result.SuccessIndex = -1

	for i, u := range ordered {
		isLast := i == len(ordered)-1

		attemptCtx := ctx
		var cancel context.CancelFunc
		if !isLast {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.PerURLTimeout)
		}

		start := time.Now()
		val, err := operation(attemptCtx, u)
		duration := time.Since(start)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			result.Attempts = append(result.Attempts, Attempt{URL: u, OK: true, DurationMs: duration.Milliseconds()})
			if cache != nil {
				cache.recordSuccess(craKey, u)
			}
			if !result.Success {
				result.Success = true
				result.Result = val
				result.UsedURL = u
				result.SuccessIndex = i
			}
			if !opts.TryAll {
				return result
			}
			continue
		}

		code := errorCode(attemptCtx, err)
		result.Attempts = append(result.Attempts, Attempt{URL: u, OK: false, ErrorCode: code, DurationMs: duration.Milliseconds()})
		if cache != nil {
			cache.recordFailure(craKey, u)
		}

		if !retriable(err) {
			break
		}
	}

	return result
}

func errorCode(ctx context.Context, err error) string {
	if ctx.Err() == context.DeadlineExceeded {
		return "TIMEOUT"
	}
	wrapped := ngerrors.Wrap(err, "")
	return string(wrapped.Code)
}
