package resilience

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often an operation is attempted before giving up.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	JitterPct   float64
}

// Permanent wraps an error to stop further retry attempts.
type Permanent struct {
	Err error
}

// Error implements the error interface.
func (p Permanent) Error() string { return p.Err.Error() }

// Unwrap exposes the wrapped error.
func (p Permanent) Unwrap() error { return p.Err }

// Retry runs fn until it succeeds, returns a Permanent error, or the policy
// is exhausted. Between attempts it sleeps an exponential, jittered backoff
// and honors context cancellation. The last error is returned on exhaustion.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var permanent Permanent
		if errors.As(lastErr, &permanent) {
			return permanent.Err
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(policy.Base, attempt, policy.JitterPct))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
