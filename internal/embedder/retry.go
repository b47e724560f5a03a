package embedder

import (
	"context"
	"time"
)

// retryWithBackoff retries fn up to attempts times with exponential
// backoff, respecting context cancellation between attempts
func retryWithBackoff[T any](ctx context.Context, attempts int, initial time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := initial

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
