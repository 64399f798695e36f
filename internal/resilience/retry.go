package resilience

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig bounds a [Retry] loop.
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// Attempts is the total number of calls, including the first.
	// Default: 3.
	Attempts int

	// Backoff is the wait before the second attempt; it doubles for each
	// attempt after that. Default: 500ms.
	Backoff time.Duration
}

// Retry calls fn until it succeeds, the attempt budget runs out, or ctx is
// cancelled. The final attempt's error is returned; a cancelled context wins
// over it.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			backoff := cfg.Backoff << (attempt - 2)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < cfg.Attempts {
			slog.Warn("retrying after failure",
				"name", cfg.Name,
				"attempt", attempt,
				"error", lastErr)
		}
	}
	return lastErr
}

// RetryWithResult is [Retry] for operations that produce a value. This is a
// package-level function because Go does not support method-level type
// parameters.
func RetryWithResult[R any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (R, error)) (R, error) {
	var result R
	err := Retry(ctx, cfg, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}
