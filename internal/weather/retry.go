package weather

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how often a fetch is attempted and how long to wait
// between attempts. The wait starts at MinWait and doubles per attempt up to
// MaxWait; only errors classified as transient by Retryable trigger another
// attempt.
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
	Jitter      bool

	// Retryable decides whether an error is worth another attempt. When nil,
	// only *TransientFetchError retries.
	Retryable func(error) bool
}

// DefaultRetryPolicy mirrors the historical job settings: 3 attempts total,
// waits of 4s then 8s, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MinWait:     4 * time.Second,
		MaxWait:     10 * time.Second,
	}
}

// Wait returns the pause before the attempt following the given 1-based
// attempt number.
func (p RetryPolicy) Wait(attempt int) time.Duration {
	d := p.MinWait << (attempt - 1)
	if p.MaxWait > 0 && d > p.MaxWait {
		d = p.MaxWait
	}
	if p.Jitter {
		if n := int64(d / 10); n > 0 {
			d += time.Duration(rand.Int64N(n))
		}
	}
	return d
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	var transient *TransientFetchError
	return errors.As(err, &transient)
}

// Do runs op up to MaxAttempts times, waiting between attempts per the
// policy. A non-retryable error aborts immediately; the last error is
// returned once attempts are exhausted. Each retry is logged with the
// attempt number, cause and next wait.
func (p RetryPolicy) Do(ctx context.Context, name string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) || attempt == p.MaxAttempts {
			return lastErr
		}

		wait := p.Wait(attempt)
		log.Printf("WARNING: retry %d for %s due to: %v; next attempt in %.1fs", attempt, name, lastErr, wait.Seconds())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
