// Package retry implements the bounded retry policy used for DNS queries.
// Only temporary failures (timeouts, unreachable servers) are retried; any
// other error is returned immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haukened/zonediff/internal/dns/common/clock"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 200 * time.Millisecond
)

const errGaveUp = "gave up after %d attempts: %w"

// Func is a single attempt of a retried operation.
type Func[T any] func(ctx context.Context) (T, error)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// Backoff is multiplied by the attempt number to get the wait before the next try.
	Backoff time.Duration
	// Clock is used for waiting; defaults to the real clock.
	Clock clock.Clock
}

// DefaultPolicy returns three attempts with a short linear backoff.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Backoff: DefaultBackoff, Clock: clock.RealClock{}}
}

// Do runs fn until it succeeds, fails permanently, the context ends, or the
// attempts are exhausted.
func Do[T any](ctx context.Context, p Policy, fn Func[T]) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)
	clk := p.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsTemporary(err) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if p.Backoff > 0 {
			select {
			case <-clk.After(p.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, fmt.Errorf(errGaveUp, attempts, lastErr)
}

// Probe runs fn under the policy and collapses every failure into absence:
// ok is false when no value could be obtained. onAbsent, when not nil,
// receives the reason so the caller can log it.
func Probe[T any](ctx context.Context, p Policy, fn Func[T], onAbsent func(error)) (value T, ok bool) {
	v, err := Do(ctx, p, fn)
	if err != nil {
		if onAbsent != nil {
			onAbsent(err)
		}
		var zero T
		return zero, false
	}
	return v, true
}

// IsTemporary reports whether err, or an error it wraps, declares itself temporary.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
