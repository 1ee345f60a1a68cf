// Package retry runs operations under an exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how often and how long to retry.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter is the randomization factor in [0, 1). Delays never exceed MaxDelay.
	Jitter float64
}

// DefaultPolicy is five attempts waiting 1s, 2s, 4s, 8s between them.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	Multiplier:  2,
	MaxDelay:    10 * time.Second,
}

// Classifier reports whether an error is worth another attempt.
type Classifier func(error) bool

// Notify is called before each wait with the failed attempt number.
type Notify func(attempt int, err error, wait time.Duration)

// Validate checks that the policy can drive a backoff.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return errors.New("retry: delays must not be negative")
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry: max delay %s is below base delay %s", p.MaxDelay, p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry: multiplier must be at least 1, got %v", p.Multiplier)
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		return fmt.Errorf("retry: jitter must be in [0, 1), got %v", p.Jitter)
	}
	return nil
}

// Do runs op until it succeeds, returns an error the classifier rejects, the
// attempts run out, or ctx ends. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, retryable Classifier, notify Notify, op func() (T, error)) (T, error) {
	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		res, err := op()
		if err != nil && retryable != nil && !retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(max(p.MaxAttempts, 1))),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}))
	}

	res, err := backoff.Retry(ctx, wrapped, opts...)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return res, err
}

func (p Policy) backOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
	}
	return &capped{BackOff: b, max: p.MaxDelay}
}

// capped keeps jittered delays under the configured ceiling.
type capped struct {
	backoff.BackOff
	max time.Duration
}

func (c *capped) NextBackOff() time.Duration {
	next := c.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	return min(next, c.max)
}
