package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
)

// TestRetryPolicy tests the shared retry policy used by the merge path and
// the control-table log writes.
//
// WHY: The policy promises a fixed number of attempts with the final error
// surfaced, never swallowed. The backoff delay is shrunk here; the attempt
// count and error propagation are the production values under test.
func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	// WithMaxRetries backoffs are stateful; build a fresh one per subtest so
	// one subtest cannot exhaust another's retry budget.
	newBackoff := func() retry.Backoff {
		return retry.WithMaxRetries(retryAttempts-1, retry.NewConstant(time.Millisecond))
	}

	t.Run("last error surfaces after attempts are exhausted", func(t *testing.T) {
		wantErr := errors.New("database is locked")

		attempts := 0
		err := withRetryPolicy(ctx, newBackoff(), func(ctx context.Context) error {
			attempts++
			return wantErr
		})

		if attempts != retryAttempts {
			t.Errorf("Expected %d attempts, got %d", retryAttempts, attempts)
		}
		if !errors.Is(err, wantErr) {
			t.Errorf("Expected the final attempt's error to surface, got %v", err)
		}
	})

	t.Run("stops after the first successful attempt", func(t *testing.T) {
		attempts := 0
		err := withRetryPolicy(ctx, newBackoff(), func(ctx context.Context) error {
			attempts++
			if attempts < 2 {
				return errors.New("database is locked")
			}
			return nil
		})

		if err != nil {
			t.Fatalf("Expected recovery on the second attempt, got error: %v", err)
		}
		if attempts != 2 {
			t.Errorf("Expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("does not retry past a cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		attempts := 0
		err := withRetryPolicy(cancelled, newBackoff(), func(ctx context.Context) error {
			attempts++
			return errors.New("database is locked")
		})

		if err == nil {
			t.Fatal("Expected an error from the cancelled retry loop")
		}
		if attempts > 1 {
			t.Errorf("Expected at most 1 attempt under a cancelled context, got %d", attempts)
		}
	})
}
