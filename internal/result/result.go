// Package result holds the single outcome type every screen operation
// produces, and a helper to run an operation asynchronously.
package result

import (
	"context"

	"github.com/five82/lector/internal/failure"
)

// State is the phase of an operation.
type State int

const (
	Idle State = iota
	Loading
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is Idle | Loading | Success(Value) | Failed(Failure).
type Result[T any] struct {
	State   State
	Value   T
	Failure *failure.Failure
}

// Pending returns a Loading result.
func Pending[T any]() Result[T] {
	return Result[T]{State: Loading}
}

// Ok returns a successful result carrying v.
func Ok[T any](v T) Result[T] {
	return Result[T]{State: Success, Value: v}
}

// Fail returns a failed result. A nil f is treated as an unknown failure.
func Fail[T any](f *failure.Failure) Result[T] {
	if f == nil {
		f = &failure.Failure{Kind: failure.Unknown, Message: "Error inesperat"}
	}
	return Result[T]{State: Failed, Failure: f}
}

// From classifies err for op, or wraps v as success when err is nil.
func From[T any](op failure.Op, v T, err error) Result[T] {
	if err != nil {
		return Fail[T](failure.Classify(op, err))
	}
	return Ok(v)
}

func (r Result[T]) IsLoading() bool { return r.State == Loading }
func (r Result[T]) IsSuccess() bool { return r.State == Success }
func (r Result[T]) IsFailed() bool  { return r.State == Failed }

// Message returns the failure text, or "" unless the result failed.
func (r Result[T]) Message() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Message
}

// Kind returns the failure kind; Unknown when the result did not fail.
func (r Result[T]) Kind() failure.Kind {
	if r.Failure == nil {
		return failure.Unknown
	}
	return r.Failure.Kind
}

// Err returns the failure as an error, or nil.
func (r Result[T]) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Go runs fn on its own goroutine and delivers exactly one Result on the
// returned channel, which is then closed. If ctx ends first the channel
// still receives fn's result once fn returns; fn is expected to honor ctx.
func Go[T any](ctx context.Context, fn func(context.Context) Result[T]) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		ch <- fn(ctx)
	}()
	return ch
}

// Await blocks until the single result of ch is available or ctx ends.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (Result[T], error) {
	select {
	case r, ok := <-ch:
		if !ok {
			return Result[T]{}, context.Canceled
		}
		return r, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}
