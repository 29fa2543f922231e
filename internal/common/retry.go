package common

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls the retry combinator.
type RetryPolicy struct {
	MaxAttempts    int           // total attempts including the first
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration // cap on any single delay
	Multiplier     float64       // backoff growth per attempt
	JitterFraction float64       // random fraction of the delay added on top, 0..1
}

// DefaultRetryPolicy matches the provider-call contract: three attempts with
// capped exponential backoff and jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Backoff returns the delay to sleep after the given zero-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= p.Multiplier
	}
	if max := float64(p.MaxBackoff); backoff > max {
		backoff = max
	}
	if p.JitterFraction > 0 {
		backoff += backoff * p.JitterFraction * rand.Float64()
	}
	return time.Duration(backoff)
}

// Retry runs op until it succeeds, returns a non-retryable fault, or the
// policy is exhausted. Exhaustion downgrades the last transient error to
// permanent-input so the caller records the item as failed instead of
// retrying forever.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff(attempt)):
		}
	}

	return PermanentInput(lastErr)
}
