package service

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry policy shared by the merge path and control-table writes: 3
// attempts total, 5 seconds between attempts.
const (
	retryAttempts = 3
	retryDelay    = 5 * time.Second
)

// withRetry runs op under the shared retry policy. Every error is treated
// as transient; the last error is returned once attempts are exhausted.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts-1, retry.NewConstant(retryDelay))

	return withRetryPolicy(ctx, backoff, op)
}

func withRetryPolicy(ctx context.Context, backoff retry.Backoff, op func(ctx context.Context) error) error {
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
