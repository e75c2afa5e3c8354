// Package navsync keeps a module's local router and the hub's location in
// step without feedback loops.
//
// Module-local history changes are debounced and reported to the hub in the
// hub's namespace. Route changes pushed by the hub are applied to the local
// router while the synchronizer is SyncingFromHub; history changes observed
// in that window are side effects of the applied navigation and are not
// reported back. The window closes a settle delay after the router has
// acknowledged the navigation.
package navsync

import (
	"context"
	"sync"
	"time"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/timer"
)

// State of the synchronizer
type State int

const (
	Idle State = iota
	SyncingFromHub
)

func (s State) String() string {
	if s == SyncingFromHub {
		return "syncing_from_hub"
	}
	return "idle"
}

// Notifier tells the hub about a module-originated navigation. hubPath is
// already in the hub's namespace.
type Notifier interface {
	NotifyNavigate(ctx context.Context, hubPath string) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, hubPath string) error

func (f NotifierFunc) NotifyNavigate(ctx context.Context, hubPath string) error {
	return f(ctx, hubPath)
}

// Options configures a Synchronizer
type Options struct {
	ModuleID     string
	Debounce     time.Duration
	Settle       time.Duration
	ExcludePaths []string
}

// Synchronizer mediates navigation between a module router and the hub
type Synchronizer struct {
	router   Router
	notifier Notifier
	opts     Options
	logger   *logger.Logger

	debounce *timer.Slot
	settle   *timer.Slot

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	syncGen  uint64
	selfNav  []selfNav
	navSeq   uint64
	closed   bool
	notified int
}

// selfNav is a Push or Replace whose router echo has not been seen yet
type selfNav struct {
	seq  uint64
	path string
}

// New creates an idle synchronizer
func New(clock timer.Clock, router Router, notifier Notifier, opts Options, log *logger.Logger) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		router:   router,
		notifier: notifier,
		opts:     opts,
		logger:   logger.OrGlobal(log).With("component", "navsync", "module_id", opts.ModuleID),
		debounce: timer.NewSlot(clock),
		settle:   timer.NewSlot(clock),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// State returns the current state
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notified returns how many notifications were sent to the hub
func (s *Synchronizer) Notified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified
}

// HistoryChanged reports a change of the module's local location, such as
// a push or replace made by module code or an in-module back/forward. The
// hub is notified after the debounce window; a later change within the
// window replaces the pending notification.
func (s *Synchronizer) HistoryChanged(modulePath string) {
	modulePath = NormalizePath(modulePath)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	// the echo of Push or Replace is consumed in every state, so no entry
	// outlives the call that added it
	if s.consumeSelfNavLocked(modulePath) {
		return
	}
	if s.state == SyncingFromHub {
		s.logger.Debug("Suppressed history change during hub sync", "path", modulePath)
		return
	}

	hubPath := HubPath(s.opts.ModuleID, modulePath)
	s.debounce.Schedule(s.opts.Debounce, func() {
		s.notify(hubPath)
	})
}

// LinkActivated handles activation of a link with the given href. Internal
// links are navigated immediately and it returns true, meaning the default
// action must be suppressed. Other links return false and are untouched.
func (s *Synchronizer) LinkActivated(ctx context.Context, href string) bool {
	if !IsInternalHref(href, s.opts.ExcludePaths) {
		return false
	}
	if err := s.Push(ctx, href); err != nil {
		s.logger.Warn("Link navigation failed", "href", href, "error", err)
	}
	return true
}

// Push navigates the local router and tells the hub right away
func (s *Synchronizer) Push(ctx context.Context, modulePath string) error {
	return s.navigate(ctx, modulePath, s.router.Push)
}

// Replace is Push without adding a history entry
func (s *Synchronizer) Replace(ctx context.Context, modulePath string) error {
	return s.navigate(ctx, modulePath, s.router.Replace)
}

// ApplyRouteChange applies a hub-originated route to the local router.
// route.Path is a hub path; the module prefix is stripped and the query is
// carried over. The synchronizer stays SyncingFromHub until Settle after
// the router returns.
func (s *Synchronizer) ApplyRouteChange(ctx context.Context, route protocol.Route) error {
	target := protocol.Route{Path: ModulePath(s.opts.ModuleID, route.Path), Query: route.Query}.String()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.state = SyncingFromHub
	s.syncGen++
	gen := s.syncGen
	s.settle.Cancel()
	s.debounce.Cancel()
	s.mu.Unlock()

	s.logger.Debug("Applying hub route change", "hub_path", route.Path, "target", target)
	err := s.router.Push(ctx, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.syncGen != gen {
		return err
	}
	if err != nil {
		s.state = Idle
		return err
	}
	s.settle.Schedule(s.opts.Settle, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.syncGen == gen {
			s.state = Idle
		}
	})
	return nil
}

// Close cancels pending timers. Later calls are ignored.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state = Idle
	s.debounce.Cancel()
	s.settle.Cancel()
	s.cancel()
}

func (s *Synchronizer) navigate(ctx context.Context, modulePath string, apply func(context.Context, string) error) error {
	modulePath = NormalizePath(modulePath)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apply(ctx, modulePath)
	}
	s.debounce.Cancel()
	s.navSeq++
	seq := s.navSeq
	s.selfNav = append(s.selfNav, selfNav{seq: seq, path: modulePath})
	s.mu.Unlock()

	s.notify(HubPath(s.opts.ModuleID, modulePath))

	err := apply(ctx, modulePath)

	// Router observers run before Push and Replace return. An entry left
	// here was never echoed and must not swallow a later change.
	s.mu.Lock()
	for i, n := range s.selfNav {
		if n.seq == seq {
			s.selfNav = append(s.selfNav[:i], s.selfNav[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return err
}

// consumeSelfNavLocked drops the echo of a navigation this synchronizer
// already reported
func (s *Synchronizer) consumeSelfNavLocked(modulePath string) bool {
	for i, n := range s.selfNav {
		if n.path == modulePath {
			s.selfNav = append(s.selfNav[:i], s.selfNav[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Synchronizer) notify(hubPath string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.notified++
	s.mu.Unlock()

	if err := s.notifier.NotifyNavigate(s.ctx, hubPath); err != nil {
		s.logger.Warn("Failed to notify hub of navigation", "hub_path", hubPath, "error", err)
	}
}
