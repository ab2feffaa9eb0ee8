// Package loading provides a shared busy indicator for asynchronous work.
//
// A [Tracker] wraps operations so that its busy flag is true while a wrapped
// operation runs and false once it returns, however it returns. The flag is
// exposed as a replaying multicast stream that any number of consumers can
// watch independently of the operations themselves.
//
// The flag is a single shared value, not a counter: callers that need
// independent busy semantics must not overlap wrapped operations.
package loading

import (
	"context"

	"github.com/jpalmerr/coursestore/internal/metrics"
	"github.com/jpalmerr/coursestore/stream"
)

// Operation is a unit of asynchronous work producing a T.
type Operation[T any] func(ctx context.Context) (T, error)

// Tracker owns the shared busy flag.
type Tracker struct {
	busy *stream.Subject[bool]
}

// NewTracker creates a [Tracker] that starts not busy.
func NewTracker() *Tracker {
	return &Tracker{
		busy: stream.NewSubject(false),
	}
}

// ShowLoaderUntilCompleted returns an [Operation] equivalent to op with busy
// tracking layered on.
//
// The flag is set when the returned operation is invoked, not when it is
// wrapped, and reset exactly once when op returns a result, returns an error
// or panics. The tracker never retries, cancels or inspects op's outcome.
func ShowLoaderUntilCompleted[T any](t *Tracker, op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		t.set(true)
		defer t.set(false)
		return op(ctx)
	}
}

// Track runs fn with busy tracking. It is shorthand for wrapping a
// result-less operation with [ShowLoaderUntilCompleted] and invoking it.
func (t *Tracker) Track(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ShowLoaderUntilCompleted[struct{}](t, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})(ctx)
	return err
}

// Busy returns the busy flag stream. New subscribers receive the current
// value immediately.
func (t *Tracker) Busy() stream.Stream[bool] {
	return t.busy
}

// IsBusy reports the current value of the busy flag.
func (t *Tracker) IsBusy() bool {
	b, _ := t.busy.Value()
	return b
}

func (t *Tracker) set(b bool) {
	metrics.SetBusy(b)
	t.busy.Next(b)
}
