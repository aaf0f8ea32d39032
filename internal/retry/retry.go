// Package retry runs operations under a randomized exponential backoff.
//
// The wait before retry n is drawn uniformly from [Min, high] where high is
// Multiplier*2^(n-1) clamped to [Min, Max]. Hosted transcription and
// classification share one policy so rate limits spread requests out.
// Attempt counting and context handling are delegated to retry-go; Policy
// supplies the delay curve.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	Attempts   int
	Min        time.Duration
	Max        time.Duration
	Multiplier time.Duration

	// Sleep waits between attempts; nil uses a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Float returns a value in [0, 1); nil uses math/rand/v2.
	Float func() float64
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// FromSeconds builds a policy from whole-second bounds as stored in config.
func FromSeconds(attempts, minSeconds, maxSeconds int) Policy {
	return Policy{
		Attempts:   attempts,
		Min:        time.Duration(minSeconds) * time.Second,
		Max:        time.Duration(maxSeconds) * time.Second,
		Multiplier: time.Second,
	}
}

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, the attempts run out, ctx ends, or retryable
// rejects the error. A nil retryable retries every error. Non-retryable errors
// are returned unwrapped.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error, retryable func(error) bool) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		calls   int
		lastErr error
		stopped bool
	)
	timer := &policyTimer{policy: p, ctx: runCtx, cancel: cancel}
	err := retrygo.Do(
		func() error {
			calls++
			lastErr = fn(runCtx)
			return lastErr
		},
		retrygo.Context(runCtx),
		retrygo.Attempts(uint(attempts)),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				(retryable != nil && !retryable(err)) {
				stopped = true
				return false
			}
			return true
		}),
		retrygo.DelayType(func(_ uint, err error, _ *retrygo.Config) time.Duration {
			delay := p.Delay(calls)
			if p.OnRetry != nil {
				p.OnRetry(calls, delay, err)
			}
			return delay
		}),
		retrygo.WithTimer(timer),
	)
	switch {
	case err == nil:
		return nil
	case timer.err != nil:
		return timer.err
	case ctx.Err() != nil:
		return ctx.Err()
	case stopped:
		return lastErr
	}
	return &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}

// policyTimer routes retry-go's waits through Policy.Sleep when one is set.
// A failed sleep cancels the run so retry-go stops at its context check.
type policyTimer struct {
	policy Policy
	ctx    context.Context
	cancel context.CancelFunc
	err    error
}

func (t *policyTimer) After(d time.Duration) <-chan time.Time {
	if t.policy.Sleep == nil {
		return time.After(d)
	}
	fired := make(chan time.Time, 1)
	if err := t.policy.Sleep(t.ctx, d); err != nil {
		t.err = err
		t.cancel()
		return fired
	}
	fired <- time.Now()
	return fired
}

// Delay returns the randomized wait after the given 1-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	high := p.Ceiling(attempt)
	if high <= p.Min {
		return high
	}
	float := p.Float
	if float == nil {
		float = rand.Float64
	}
	return p.Min + time.Duration(float()*float64(high-p.Min))
}

// Ceiling returns the upper bound of the wait after the given failed attempt.
func (p Policy) Ceiling(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	high := multiplier
	for i := 1; i < attempt; i++ {
		if p.Max > 0 && high >= p.Max {
			break
		}
		high *= 2
	}
	if p.Max > 0 && high > p.Max {
		high = p.Max
	}
	if high < p.Min {
		high = p.Min
	}
	return high
}
