package hub

import (
	"sync"

	"github.com/billm/framehub/pkg/protocol"
)

// History is the hub's own location stack
type History struct {
	mu      sync.Mutex
	entries []protocol.Route
	index   int
}

// NewHistory creates a history positioned at initial
func NewHistory(initial protocol.Route) *History {
	return &History{entries: []protocol.Route{initial}}
}

// Current returns the current entry
func (h *History) Current() protocol.Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Push adds route after the current entry, dropping forward entries.
// Pushing the current route again is a no-op.
func (h *History) Push(route protocol.Route) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries[h.index].Equal(route) {
		return
	}
	h.entries = append(h.entries[:h.index+1], route)
	h.index++
}

// Replace overwrites the current entry
func (h *History) Replace(route protocol.Route) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = route
}

// Back moves one entry back and returns it
func (h *History) Back() (protocol.Route, bool) {
	return h.move(-1)
}

// Forward moves one entry forward and returns it
func (h *History) Forward() (protocol.Route, bool) {
	return h.move(1)
}

// CanBack reports whether Back would move
func (h *History) CanBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanForward reports whether Forward would move
func (h *History) CanForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.entries)-1
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) move(delta int) (protocol.Route, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		return protocol.Route{}, false
	}
	h.index = next
	return h.entries[next], true
}
