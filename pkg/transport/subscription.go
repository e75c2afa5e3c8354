package transport

import (
	"sync"
	"sync/atomic"

	"github.com/billm/framehub/pkg/protocol"
)

// Subscription binds a handler to a message type until cancelled
type Subscription struct {
	channel *Channel
	typ     protocol.MessageType
	id      uint64
	handler Handler
	active  atomic.Bool
}

// Inert returns a subscription bound to nothing, for callers that run detached
func Inert(typ protocol.MessageType) *Subscription {
	return &Subscription{typ: typ}
}

// Type returns the subscribed message type
func (s *Subscription) Type() protocol.MessageType {
	return s.typ
}

// Active reports whether the handler still receives messages
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Cancel deregisters the handler. A handler already dispatched for a message
// in flight does not run once Cancel returns. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	if s.channel != nil {
		s.channel.remove(s)
	}
}

// SubscriptionSet owns the live subscriptions of one party. It is only ever
// replaced as a whole: Install cancels every subscription of the previous set
// before creating the new one, so at most one set is live at a time.
type SubscriptionSet struct {
	mu   sync.Mutex
	subs []*Subscription
	gen  uint64
}

// NewSubscriptionSet creates an empty set
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{}
}

// Install cancels the current set and installs the subscriptions returned by
// build. The returned teardown cancels the installed set; it does nothing if
// the set was replaced in the meantime.
func (s *SubscriptionSet) Install(build func() []*Subscription) (teardown func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.subs = build()
	s.gen++
	gen := s.gen

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.cancelLocked()
		}
	}
}

// CancelAll cancels every subscription of the current set
func (s *SubscriptionSet) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.gen++
}

// Len returns the number of subscriptions in the current set
func (s *SubscriptionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *SubscriptionSet) cancelLocked() {
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil
}
