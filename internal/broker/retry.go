package broker

import (
	"context"
	"time"
)

// retryDelays is the fixed 0.5s/1s/2s backoff schedule from spec.md
// §4.D for broker calls, grounded in shape (not value) on
// internal/clients/tradernet's exponential reconnect backoff
// (calculateBackoff).
var retryDelays = []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}

// withRetry calls fn up to len(retryDelays)+1 times, sleeping the fixed
// schedule between attempts, and returns the last error if every attempt
// fails. It stops early if ctx is canceled.
func withRetry[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return Retry(ctx, fn)
}

// Retry calls fn up to len(retryDelays)+1 times on the same 0.5s/1s/2s
// schedule as every Gateway method, for callers outside this package
// that need the identical retry policy against a Gateway call not
// already wrapped here (e.g. the engine's LTP fetch in spec.md §4.J
// step 4).
func Retry[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt >= len(retryDelays) {
			return zero, lastErr
		}
		select {
		case <-time.After(retryDelays[attempt]):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
