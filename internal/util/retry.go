package util

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	connectAttempts  = 5
	connectBaseDelay = 200 * time.Millisecond
)

// RetryConnect calls ping until it succeeds, backing off exponentially
// (200ms, 400ms, 800ms, ...) for at most five attempts. Only used while
// establishing store connections at startup.
func RetryConnect(ctx context.Context, ping func(context.Context) error) error {
	return RetryWithBackoff(ctx, connectAttempts, connectBaseDelay, ping)
}

// RetryWithBackoff runs operation up to attempts times with exponential backoff
// starting at base. The last error is returned when every attempt fails.
func RetryWithBackoff(ctx context.Context, attempts uint64, base time.Duration, operation func(context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := operation(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
