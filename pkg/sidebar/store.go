// Package sidebar holds one party's copy of the shared sidebar state and
// persists it through a kvstore. Persistence failures never reach callers:
// they are logged and the in-memory state stays authoritative.
package sidebar

import (
	"context"
	"sync"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/protocol"
)

// ChangeFunc observes local mutations
type ChangeFunc func(protocol.SidebarState)

// Store is a party's sidebar state. Local mutations notify the OnChange
// observers with the full new state; Replace adopts a state written by the
// other party and does not notify.
type Store struct {
	kv     kvstore.Store
	key    string
	logger *logger.Logger

	mu        sync.Mutex
	state     protocol.SidebarState
	observers map[int]ChangeFunc
	nextID    int
}

// New loads the persisted state under key. A nil kv keeps the state in
// memory only; a missing, unreadable or corrupt value yields the default state.
func New(ctx context.Context, kv kvstore.Store, key string, log *logger.Logger) *Store {
	s := &Store{
		kv:        kv,
		key:       key,
		logger:    logger.OrGlobal(log).With("component", "sidebar"),
		state:     protocol.DefaultSidebarState(),
		observers: make(map[int]ChangeFunc),
	}

	if kv == nil {
		return s
	}
	var loaded protocol.SidebarState
	err := kvstore.GetJSON(ctx, kv, key, &loaded)
	switch {
	case err == nil:
		s.state = loaded.Clone()
	case kvstore.IsNotFound(err):
	default:
		s.logger.Warn("Failed to load sidebar state, using default", "key", key, "error", err)
	}
	return s
}

// State returns a copy of the current state
func (s *Store) State() protocol.SidebarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ToggleCollapse flips the collapsed flag
func (s *Store) ToggleCollapse(ctx context.Context) protocol.SidebarState {
	return s.mutate(ctx, func(st protocol.SidebarState) protocol.SidebarState {
		st.Collapsed = !st.Collapsed
		return st
	})
}

// SetCollapsed sets the collapsed flag
func (s *Store) SetCollapsed(ctx context.Context, collapsed bool) protocol.SidebarState {
	return s.mutate(ctx, func(st protocol.SidebarState) protocol.SidebarState {
		st.Collapsed = collapsed
		return st
	})
}

// ToggleSection flips membership of one section
func (s *Store) ToggleSection(ctx context.Context, sectionID string) protocol.SidebarState {
	return s.mutate(ctx, func(st protocol.SidebarState) protocol.SidebarState {
		return st.ToggleSection(sectionID)
	})
}

// SetExpandedSections replaces the set of open sections
func (s *Store) SetExpandedSections(ctx context.Context, ids []string) protocol.SidebarState {
	return s.mutate(ctx, func(st protocol.SidebarState) protocol.SidebarState {
		st.ExpandedSections = ids
		return st.Clone()
	})
}

// ExpandSections opens ids in addition to the sections already open
func (s *Store) ExpandSections(ctx context.Context, ids ...string) protocol.SidebarState {
	return s.mutate(ctx, func(st protocol.SidebarState) protocol.SidebarState {
		return st.Expand(ids...)
	})
}

// Replace overwrites the state with one received from the other party and
// persists it. Observers are not notified, so the state is not echoed back.
func (s *Store) Replace(ctx context.Context, state protocol.SidebarState) protocol.SidebarState {
	s.mu.Lock()
	s.state = state.Clone()
	out := s.state.Clone()
	s.mu.Unlock()

	s.persist(ctx, out)
	return out
}

// Seed adopts state, filling in defaults when it has no open sections.
// This is the read path of a module joining a hub.
func (s *Store) Seed(ctx context.Context, state protocol.SidebarState, defaults []string) protocol.SidebarState {
	if len(state.ExpandedSections) == 0 {
		state = state.Expand(defaults...)
	}
	return s.Replace(ctx, state)
}

// OnChange registers fn for local mutations and returns its cancel func
func (s *Store) OnChange(fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(ctx context.Context, f func(protocol.SidebarState) protocol.SidebarState) protocol.SidebarState {
	s.mu.Lock()
	s.state = f(s.state.Clone()).Clone()
	out := s.state.Clone()
	observers := make([]ChangeFunc, 0, len(s.observers))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	s.mu.Unlock()

	s.persist(ctx, out)
	for _, fn := range observers {
		fn(out.Clone())
	}
	return out
}

func (s *Store) persist(ctx context.Context, state protocol.SidebarState) {
	if s.kv == nil {
		return
	}
	if err := kvstore.SetJSON(ctx, s.kv, s.key, state); err != nil {
		s.logger.Warn("Failed to persist sidebar state", "key", s.key, "error", err)
	}
}
