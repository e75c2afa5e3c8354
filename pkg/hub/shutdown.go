package hub

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/types"
)

// ShutdownState represents the current state of the shutdown process
type ShutdownState string

const (
	ShutdownStateRunning   ShutdownState = "running"
	ShutdownStateInitiated ShutdownState = "initiated"
	ShutdownStateStopping  ShutdownState = "stopping"
	ShutdownStateComplete  ShutdownState = "complete"
)

func (s ShutdownState) String() string {
	return string(s)
}

// ShutdownHook runs during shutdown, after the target has stopped
type ShutdownHook func(ctx context.Context) error

// Stoppable is the component a ShutdownManager stops
type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// ShutdownManager stops a component on SIGINT/SIGTERM or on request, then
// runs the registered hooks
type ShutdownManager struct {
	mu       sync.RWMutex
	target   Stoppable
	state    ShutdownState
	timeout  time.Duration
	hooks    []ShutdownHook
	logger   *logger.Logger
	signals  chan os.Signal
	started  bool
	reason   string
	ctx      context.Context
	cancel   context.CancelFunc
	complete chan struct{}
}

// NewShutdownManager creates a manager for target
func NewShutdownManager(target Stoppable, timeout time.Duration, log *logger.Logger) *ShutdownManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownManager{
		target:   target,
		state:    ShutdownStateRunning,
		timeout:  timeout,
		logger:   logger.OrGlobal(log).With("component", "shutdown_manager"),
		signals:  make(chan os.Signal, 1),
		ctx:      ctx,
		cancel:   cancel,
		complete: make(chan struct{}),
	}
}

// Start begins listening for shutdown signals
func (sm *ShutdownManager) Start() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.started {
		return
	}
	signal.Notify(sm.signals, syscall.SIGINT, syscall.SIGTERM)
	sm.started = true
	go sm.handleSignals()
}

// Stop stops signal handling
func (sm *ShutdownManager) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.started {
		return
	}
	signal.Stop(sm.signals)
	sm.cancel()
	sm.started = false
}

// AddHook registers a hook
func (sm *ShutdownManager) AddHook(hook ShutdownHook) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, hook)
}

// Shutdown stops the target and runs the hooks. Only the first call does
// anything; later calls fail with FAILED_PRECONDITION.
func (sm *ShutdownManager) Shutdown(ctx context.Context, reason string) error {
	sm.mu.Lock()
	if sm.state != ShutdownStateRunning {
		sm.mu.Unlock()
		return types.NewError(types.ErrCodeFailedPrecondition, "shutdown already initiated")
	}
	sm.state = ShutdownStateInitiated
	sm.reason = reason
	sm.mu.Unlock()

	start := time.Now()
	sm.logger.Info("Shutdown initiated", "reason", reason)

	ctx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	sm.setState(ShutdownStateStopping)
	if err := sm.target.Shutdown(ctx); err != nil {
		sm.logger.Error("Shutdown of hub failed", "error", err)
	}
	if err := sm.runHooks(ctx); err != nil {
		sm.logger.Error("Shutdown hooks failed", "error", err)
	}

	sm.setState(ShutdownStateComplete)
	close(sm.complete)
	sm.logger.Info("Shutdown complete", "reason", reason, "duration", time.Since(start))
	return nil
}

// Wait blocks until shutdown completes or ctx ends
func (sm *ShutdownManager) Wait(ctx context.Context) error {
	select {
	case <-sm.complete:
		return nil
	case <-ctx.Done():
		return types.WrapError(types.ErrCodeCanceled, "wait for shutdown canceled", ctx.Err())
	}
}

// Done is closed when shutdown has completed
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.complete
}

// State returns the current shutdown state
func (sm *ShutdownManager) State() ShutdownState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// Reason returns why shutdown was initiated
func (sm *ShutdownManager) Reason() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.reason
}

func (sm *ShutdownManager) handleSignals() {
	for {
		select {
		case sig := <-sm.signals:
			sm.logger.Info("Shutdown signal received", "signal", sig)
			go func() {
				if err := sm.Shutdown(context.Background(), fmt.Sprintf("signal received: %s", sig)); err != nil {
					sm.logger.Debug("Ignoring repeated shutdown signal", "error", err)
				}
			}()
		case <-sm.ctx.Done():
			return
		}
	}
}

func (sm *ShutdownManager) runHooks(ctx context.Context) error {
	sm.mu.RLock()
	hooks := append([]ShutdownHook(nil), sm.hooks...)
	sm.mu.RUnlock()

	var first error
	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			sm.logger.Error("Shutdown hook failed", "hook", i, "error", err)
			if first == nil {
				first = err
			}
		}
		if ctx.Err() != nil {
			return types.WrapError(types.ErrCodeCanceled, "hook execution canceled", ctx.Err())
		}
	}
	return first
}

func (sm *ShutdownManager) setState(state ShutdownState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = state
	sm.logger.Debug("Shutdown state changed", "state", state)
}
