package navsync

import (
	"context"
	"sync"
)

// Router is the module's local router. Push and Replace return once the
// navigation has been applied.
type Router interface {
	Push(ctx context.Context, path string) error
	Replace(ctx context.Context, path string) error
}

// MemoryRouter is an in-process history stack. Every change, including
// back and forward, is reported to the observers after it is applied.
type MemoryRouter struct {
	mu        sync.Mutex
	entries   []string
	index     int
	observers map[int]func(path string)
	nextID    int
}

// NewMemoryRouter creates a router positioned at initial
func NewMemoryRouter(initial string) *MemoryRouter {
	return &MemoryRouter{
		entries:   []string{NormalizePath(initial)},
		observers: make(map[int]func(string)),
	}
}

// Push appends path, dropping any forward entries
func (r *MemoryRouter) Push(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = NormalizePath(path)
	r.mu.Lock()
	r.entries = append(r.entries[:r.index+1], path)
	r.index++
	r.mu.Unlock()

	r.notify(path)
	return nil
}

// Replace overwrites the current entry
func (r *MemoryRouter) Replace(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = NormalizePath(path)
	r.mu.Lock()
	r.entries[r.index] = path
	r.mu.Unlock()

	r.notify(path)
	return nil
}

// Back moves one entry back. It reports false at the start of history.
func (r *MemoryRouter) Back() bool {
	return r.move(-1)
}

// Forward moves one entry forward. It reports false at the end of history.
func (r *MemoryRouter) Forward() bool {
	return r.move(1)
}

// Current returns the current path
func (r *MemoryRouter) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[r.index]
}

// History returns a copy of the entries and the current index
func (r *MemoryRouter) History() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...), r.index
}

// OnChange registers fn and returns its cancel func
func (r *MemoryRouter) OnChange(fn func(path string)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

func (r *MemoryRouter) move(delta int) bool {
	r.mu.Lock()
	next := r.index + delta
	if next < 0 || next >= len(r.entries) {
		r.mu.Unlock()
		return false
	}
	r.index = next
	path := r.entries[next]
	r.mu.Unlock()

	r.notify(path)
	return true
}

func (r *MemoryRouter) notify(path string) {
	r.mu.Lock()
	fns := make([]func(string), 0, len(r.observers))
	for i := 0; i < r.nextID; i++ {
		if fn, ok := r.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(path)
	}
}
