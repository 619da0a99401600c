package viewmodel

import (
	"log"

	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
	"github.com/five82/lector/internal/state"
)

// load runs fn for op, publishing Loading then the outcome to slot.
func load[T any](slot *state.Slot[T], op failure.Op, fn func() (T, error)) result.Result[T] {
	slot.Begin()
	res := call(op, fn)
	slot.Publish(res)
	return res
}

// call runs fn and classifies its error for op.
func call[T any](op failure.Op, fn func() (T, error)) result.Result[T] {
	v, err := fn()
	res := result.From(op, v, err)
	if res.IsFailed() {
		logFailure(res.Failure)
	}
	return res
}

func invalid[T any](op failure.Op, format string, args ...any) result.Result[T] {
	f := failure.Invalid(op, format, args...)
	logFailure(f)
	return result.Fail[T](f)
}

func logFailure(f *failure.Failure) {
	if f == nil {
		return
	}
	if raw := f.Raw(); raw != "" {
		log.Printf("%s failed (%s): %s [%s]", f.Op, f.Kind, f.Message, raw)
		return
	}
	log.Printf("%s failed (%s): %s", f.Op, f.Kind, f.Message)
}

// deref turns a (pointer, error) API return into (value, error).
func deref[T any](p *T, err error) (T, error) {
	var zero T
	if err != nil || p == nil {
		return zero, err
	}
	return *p, nil
}

type none = struct{}

func discard(err error) (none, error) { return none{}, err }
