package batch

import (
	"context"
	"math/rand"
	"time"

	"github.com/Ladvien/self-sensored/internal/apperr"
)

// withRetry executes fn up to maxAttempts times, applying exponential
// backoff with full jitter between attempts (spec §4.6.2 step 5.c).
// Only errors matching apperr.ErrTransient are retried; anything else
// returns immediately. The number of attempts actually taken beyond
// the first is returned for BatchResult.RetryAttempts.
func withRetry(ctx context.Context, maxAttempts int, initial, max time.Duration, fn func() error) (attempts int, err error) {
	backoff := initial
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return attempts, nil
		}
		if !apperr.IsRetryable(err) {
			return attempts, err
		}
		if attempt == maxAttempts-1 {
			return attempts, err
		}

		attempts++
		sleep := time.Duration(rand.Int63n(int64(backoff) + 1))
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(sleep):
		}

		backoff *= 2
		if backoff > max {
			backoff = max
		}
	}
	return attempts, err
}
