// Package timeout bounds the running time of a single blocking call.
package timeout

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned when the deadline passes before the operation
// finishes. The operation may still complete afterwards; its result is
// discarded.
var ErrTimedOut = errors.New("operation timed out")

type result[T any] struct {
	val T
	err error
}

// Do runs op and races it against a timer of length d. Whichever finishes
// first decides the outcome. When the timer wins, the context handed to op is
// cancelled and ErrTimedOut is returned; whether op notices the cancellation
// is up to op.
func Do[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return zero, ErrTimedOut
	}

	opCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	// Buffered so a late op never blocks after we have returned.
	done := make(chan result[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, ErrTimedOut
		}
		return r.val, r.err
	case <-opCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, ErrTimedOut
	}
}

// Run is Do for operations that only return an error.
func Run(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	_, err := Do(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
