package state

import (
	"slices"
	"sync"
	"time"

	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
)

// Policy decides what a slot shows after a failed operation.
type Policy int

const (
	// KeepOnFailure leaves the last good value visible next to the error.
	KeepOnFailure Policy = iota
	// ClearOnFailure empties the value; used when the failed operation's own
	// list is what the screen displays.
	ClearOnFailure
)

// Snapshot is a copy of a slot at a point in time.
type Snapshot[T any] struct {
	Result              result.Result[T]
	Value               T
	HasValue            bool
	LastUpdated         time.Time
	Seq                 uint64
	ConsecutiveFailures int
}

// Loading reports whether an operation for this slot is in flight.
func (s Snapshot[T]) Loading() bool { return s.Result.IsLoading() }

// Message returns the failure message of the latest result, if any.
func (s Snapshot[T]) Message() string { return s.Result.Message() }

// IsOffline returns true when the backend has been unreachable on the last
// two operations of this slot.
func (s Snapshot[T]) IsOffline() bool {
	return s.ConsecutiveFailures >= 2 && s.Result.Kind() == failure.Network
}

// Slot coordinates concurrent publishes to one piece of screen state. The
// latest completed Publish wins; issue order is not preserved.
type Slot[T any] struct {
	mu       sync.RWMutex
	policy   Policy
	clone    func(T) T
	snapshot Snapshot[T]
}

// NewSlot returns a slot that keeps prior data on failure.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{policy: KeepOnFailure}
}

// NewListSlot returns a slot for a displayed list: it clones on read and
// shows an empty list when loading the list fails.
func NewListSlot[E any]() *Slot[[]E] {
	return &Slot[[]E]{
		policy: ClearOnFailure,
		clone:  func(items []E) []E { return cloneList(items) },
	}
}

// Begin marks the slot as loading. The previous value stays visible.
func (s *Slot[T]) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Result = result.Result[T]{State: result.Loading, Value: s.snapshot.Value}
	s.snapshot.Seq++
}

// Publish records the outcome of an operation.
func (s *Slot[T]) Publish(r result.Result[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Seq++
	s.snapshot.LastUpdated = time.Now()

	switch r.State {
	case result.Failed:
		s.snapshot.ConsecutiveFailures++
		if s.policy == ClearOnFailure {
			var zero T
			s.snapshot.Value = zero
			s.snapshot.HasValue = false
		}
		r.Value = s.snapshot.Value
		s.snapshot.Result = r
	case result.Success:
		s.snapshot.ConsecutiveFailures = 0
		s.snapshot.Value = s.copy(r.Value)
		s.snapshot.HasValue = true
		s.snapshot.Result = r
	default:
		s.snapshot.Result = r
	}
}

// Reset returns the slot to Idle with no value, e.g. after logout.
func (s *Slot[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.snapshot.Seq + 1
	s.snapshot = Snapshot[T]{Seq: seq}
}

// Snapshot returns a copy of the current slot state.
func (s *Slot[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Value = s.copy(s.snapshot.Value)
	snap.Result.Value = s.copy(s.snapshot.Result.Value)
	return snap
}

func (s *Slot[T]) copy(v T) T {
	if s.clone == nil {
		return v
	}
	return s.clone(v)
}

func cloneList[E any](items []E) []E {
	if len(items) == 0 {
		return nil
	}
	return slices.Clone(items)
}
