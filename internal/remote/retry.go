package remote

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tabsync/tabsync/internal/logging"
)

// withRetry runs op under exponential backoff, bounded by maxAttempts.
// Non-transient errors abort immediately.
func withRetry[T any](ctx context.Context, operation string, maxAttempts uint, op func() (T, error)) (T, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx,
		func() (T, error) {
			v, err := op()
			if err != nil && !retryable(err) {
				return v, backoff.Permanent(err)
			}
			return v, err
		},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logging.Debug("retrying remote operation",
				logging.Operation(operation),
				logging.Err(err),
			)
		}),
	)
}
