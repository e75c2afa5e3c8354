// Package timer provides the cancellable timer used by every delayed action in
// the hub and module runtimes: navigation debounce, settle delay, readiness
// timeout and minimum skeleton display.
package timer

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback
type Stopper interface {
	Stop() bool
}

// Clock is the source of time for scheduled callbacks
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Real returns a Clock backed by the time package
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Slot holds at most one pending callback. Scheduling replaces the pending
// callback; a replaced or cancelled callback never runs, even if its
// underlying timer already fired.
type Slot struct {
	clock Clock

	mu      sync.Mutex
	gen     uint64
	stopper Stopper
	pending bool
}

// NewSlot creates an empty slot on the given clock. A nil clock uses Real.
func NewSlot(clock Clock) *Slot {
	if clock == nil {
		clock = Real()
	}
	return &Slot{clock: clock}
}

// Schedule cancels any pending callback and arranges for f to run after d
func (s *Slot) Schedule(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen
	s.pending = true
	s.stopper = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen != gen || !s.pending {
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.stopper = nil
		s.mu.Unlock()
		f()
	})
}

// Cancel drops the pending callback. It reports whether one was pending.
// Calling Cancel on an empty slot is a no-op.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.pending
	s.stopLocked()
	s.gen++
	return was
}

// Pending reports whether a callback is scheduled and has not yet run
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Slot) stopLocked() {
	if s.stopper != nil {
		s.stopper.Stop()
		s.stopper = nil
	}
	s.pending = false
}
