// Package watchdog bounds how long a module may take to become ready after a
// mount, and keeps the loading skeleton on screen for a minimum time.
package watchdog

import (
	"sync"
	"time"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/timer"
)

// Options configures a Watchdog
type Options struct {
	// ReadyTimeout is how long a load may run before it is failed
	ReadyTimeout time.Duration
	// MinSkeleton is the shortest time the skeleton stays visible
	MinSkeleton time.Duration
	// OnTimeout runs when readiness never arrived for route
	OnTimeout func(route string)
	// OnSkeletonHidden runs when the skeleton for route is hidden after readiness
	OnSkeletonHidden func(route string)
}

// Watchdog tracks one load at a time. Start supersedes the previous load and
// every timer it owned.
type Watchdog struct {
	clock    timer.Clock
	opts     Options
	logger   *logger.Logger
	timeout  *timer.Slot
	skeleton *timer.Slot

	mu         sync.Mutex
	gen        uint64
	route      string
	loading    bool
	visible    bool
	minElapsed bool
	shownAt    time.Time
}

// New creates an idle watchdog
func New(clock timer.Clock, opts Options, log *logger.Logger) *Watchdog {
	if clock == nil {
		clock = timer.Real()
	}
	return &Watchdog{
		clock:    clock,
		opts:     opts,
		logger:   logger.OrGlobal(log).With("component", "watchdog"),
		timeout:  timer.NewSlot(clock),
		skeleton: timer.NewSlot(clock),
	}
}

// Start begins a load of route: the skeleton appears and both timers are armed
func (w *Watchdog) Start(route string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	gen := w.gen
	w.route = route
	w.loading = true
	w.visible = true
	w.minElapsed = false
	w.shownAt = w.clock.Now()

	w.timeout.Schedule(w.opts.ReadyTimeout, func() { w.expire(gen) })
	w.skeleton.Schedule(w.opts.MinSkeleton, func() { w.skeletonElapsed(gen) })
	w.logger.Debug("Watching module load", "route", route, "timeout", w.opts.ReadyTimeout)
}

// Ready records readiness for the current load. It reports false when no
// load is pending, e.g. a duplicate signal or one after a timeout.
func (w *Watchdog) Ready() bool {
	w.mu.Lock()
	if !w.loading {
		w.mu.Unlock()
		return false
	}
	w.loading = false
	w.timeout.Cancel()
	elapsed := w.clock.Now().Sub(w.shownAt)
	hide := w.minElapsed
	route := w.route
	if hide {
		w.visible = false
	}
	w.mu.Unlock()

	w.logger.Debug("Module ready", "route", route, "elapsed", elapsed)
	if hide {
		w.hidden(route)
	}
	return true
}

// Stop abandons the current load and cancels both timers without callbacks
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	w.timeout.Cancel()
	w.skeleton.Cancel()
	w.loading = false
	w.visible = false
}

// Loading reports whether the current load is still waiting for readiness
func (w *Watchdog) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// SkeletonVisible reports whether the loading skeleton is on screen
func (w *Watchdog) SkeletonVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Route returns the route of the current or last load
func (w *Watchdog) Route() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.route
}

func (w *Watchdog) expire(gen uint64) {
	w.mu.Lock()
	if w.gen != gen || !w.loading {
		w.mu.Unlock()
		return
	}
	w.gen++
	w.loading = false
	w.visible = false
	w.skeleton.Cancel()
	route := w.route
	w.mu.Unlock()

	w.logger.Warn("Module did not become ready in time", "route", route, "timeout", w.opts.ReadyTimeout)
	if w.opts.OnTimeout != nil {
		w.opts.OnTimeout(route)
	}
}

func (w *Watchdog) skeletonElapsed(gen uint64) {
	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		return
	}
	w.minElapsed = true
	hide := !w.loading && w.visible
	if hide {
		w.visible = false
	}
	route := w.route
	w.mu.Unlock()

	if hide {
		w.hidden(route)
	}
}

func (w *Watchdog) hidden(route string) {
	if w.opts.OnSkeletonHidden != nil {
		w.opts.OnSkeletonHidden(route)
	}
}
