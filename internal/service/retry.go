package service

import (
	"context"
	"math"
	"time"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultSendRetry is used for outbound Telegram calls.
var DefaultSendRetry = RetryPolicy{
	MaxRetries:    3,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2,
}

// NextDelay returns the delay before the given attempt (1-based).
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Do calls fn until it succeeds, fn reports the error as final, retries run
// out, or ctx is done. retryAfter lets fn override the backoff delay; zero
// means use the policy.
func (r RetryPolicy) Do(ctx context.Context, fn func() (retryAfter time.Duration, retry bool, err error)) error {
	for attempt := 1; ; attempt++ {
		after, retry, err := fn()
		if err == nil || !retry || attempt > r.MaxRetries {
			return err
		}

		delay := r.NextDelay(attempt)
		if after > 0 {
			delay = after
		}
		if r.MaxDelay > 0 && delay > r.MaxDelay {
			delay = r.MaxDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
