package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is an explicit retry contract passed into call sites: max
// attempts, exponential backoff with jitter, and a predicate deciding which
// errors are transient. Non-retryable errors fail immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // fraction of the delay randomized, in [0,1]
	Retryable   func(error) bool
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It returns
// the last error when attempts are exhausted, the first non-retryable error
// immediately, or the context error if the deadline expires while waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// delay computes the backoff before the given attempt (1-based for the first
// retry): BaseDelay * 2^(attempt-1), jittered, capped at MaxDelay.
func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	d := base << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread/2 + rand.Float64()*spread)
	}
	return d
}
