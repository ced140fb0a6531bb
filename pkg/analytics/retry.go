package analytics

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures how idempotent reads are retried.
type RetryPolicy struct {
	// MaxRetries counts attempts after the first one.
	MaxRetries int
	// Delay is the wait after the first failure.
	Delay    time.Duration
	MaxDelay time.Duration
	Factor   float64
	Jitter   bool
}

// DefaultRetryPolicy retries once after a short pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 1,
		Delay:      200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Factor:     2,
		Jitter:     true,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks err as not worth another attempt.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// do runs op until it succeeds, fails permanently, the context ends or the
// retries are spent. It returns the attempt count and the last error.
func (p RetryPolicy) do(ctx context.Context, op func() error) (int, error) {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Delay <= 0 {
		p.Delay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Factor <= 0 {
		p.Factor = 2
	}

	delay := p.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return attempt - 1, err
		}
		err = op()
		if err == nil {
			return attempt, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) || ctx.Err() != nil || attempt > p.MaxRetries {
			return attempt, unwrapPermanent(err)
		}

		sleep := delay
		if p.Jitter {
			sleep = time.Duration(float64(delay) * (0.5 + rand.Float64()))
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * p.Factor)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
