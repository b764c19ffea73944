// Package retry runs an operation again with exponential backoff while its
// error is transient. The server uses it to wait for storage backends that
// start after it does.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

var (
	// ErrNotRetryable marks a failure that stopped retries early.
	ErrNotRetryable = errors.New("retry: error is not retryable")

	// ErrMaxAttempts marks a failure after every attempt was used.
	ErrMaxAttempts = errors.New("retry: attempts exhausted")

	// ErrCanceled marks a failure cut short by the context.
	ErrCanceled = errors.New("retry: context canceled")
)

// Policy controls attempts and delays. The zero value is usable and gets the
// defaults of DefaultPolicy for every unset field.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Jitter spreads each delay by +/- this fraction, between 0 and 1.
	Jitter float64

	// IsRetryable decides whether err is worth another attempt.
	// Defaults to DefaultIsRetryable.
	IsRetryable func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns 4 attempts starting at 100ms, doubling up to 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
		IsRetryable:  DefaultIsRetryable,
	}
}

func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	p.Jitter = min(max(p.Jitter, 0), 1)
	if p.IsRetryable == nil {
		p.IsRetryable = d.IsRetryable
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalize()
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	d = math.Min(d, float64(p.MaxDelay))
	if p.Jitter > 0 {
		spread := d * p.Jitter
		d += (rand.Float64()*2 - 1) * spread
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is done. Failures are returned as *Error.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	p = p.normalize()

	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last == nil {
				return err
			}
			return &Error{Cause: last, Attempts: attempt - 1, Reason: ErrCanceled}
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !p.IsRetryable(last) {
			return &Error{Cause: last, Attempts: attempt, Reason: ErrNotRetryable}
		}
		if attempt >= p.MaxAttempts {
			return &Error{Cause: last, Attempts: attempt, Reason: ErrMaxAttempts}
		}

		wait := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, last, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return &Error{Cause: last, Attempts: attempt, Reason: ErrCanceled}
		case <-t.C:
		}
	}
}

// DoValue is Do for functions that return a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// Error reports why Do gave up. errors.Is matches both Reason and Cause.
type Error struct {
	Cause    error
	Attempts int
	Reason   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", e.Reason, e.Attempts, e.Cause)
}

func (e *Error) Unwrap() []error {
	return []error{e.Reason, e.Cause}
}

// DefaultIsRetryable retries everything except context errors and errors
// wrapped with Permanent.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *permanentError
	return !errors.As(err, &pe)
}

// Permanent wraps err so DefaultIsRetryable rejects it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
