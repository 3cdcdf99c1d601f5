package provider

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a failed provider call is repeated.
// Applied uniformly by every adapter, decoupled from call sites.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff returns the wait before retrying after attempt n (0-based).
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy: 3 attempts, exponential backoff starting at one
// second and doubling each attempt (1s, 2s).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Second << attempt
		},
	}
}

// Do runs fn until it succeeds or the attempt budget is spent. The
// terminal failure is a *Error carrying the provider name, the attempt
// count, and the last underlying error. Context cancellation cuts the
// backoff wait short and is returned as-is.
func (p RetryPolicy) Do(ctx context.Context, providerName string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < attempts-1 && p.Backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff(attempt)):
			}
		}
	}

	return &Error{Provider: providerName, Attempts: attempts, Err: lastErr}
}
