// Package httpx is the shared outbound HTTP client used by every fetcher
// (schedule, odds, weather, lineups, umpires) and the alert webhook poster.
package httpx

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries a context-aware function with exponential backoff,
// ported from bot-service/internal/retry.RetryPolicy and generalized to take
// a context so a retry loop can be cancelled mid-backoff.
type RetryPolicy struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewRetryPolicy builds a policy capped at 30s between attempts, matching
// bot-service's cap.
func NewRetryPolicy(maxAttempts int, initialDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		maxDelay:     30 * time.Second,
	}
}

// Execute runs fn, retrying on error with 1.5x exponential backoff between
// attempts, capped at maxDelay. It returns early if ctx is cancelled while
// sleeping between attempts.
func (r *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := r.initialDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < r.maxAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * 1.5)
			if delay > r.maxDelay {
				delay = r.maxDelay
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", r.maxAttempts, lastErr)
}
