// Package memory connects two transport channels inside one process.
package memory

import (
	"context"
	"sync"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/types"
)

const queueSize = 1024

// Pipe returns the hub and module ends of an in-process connection. Frames
// posted by one end are delivered to the other asynchronously, in order.
// Closing either channel does not close the other; the returned closer
// closes both channels and stops both delivery goroutines.
func Pipe(log *logger.Logger) (hub, module *transport.Channel, closer func()) {
	toModule := newLink()
	toHub := newLink()

	hub = transport.NewChannel(toModule, log)
	module = transport.NewChannel(toHub, log)

	toModule.start(module)
	toHub.start(hub)

	return hub, module, func() {
		_ = hub.Close()
		_ = module.Close()
		toModule.close()
		toHub.close()
	}
}

// link is a one-way, ordered, asynchronous frame queue
type link struct {
	queue chan protocol.Frame

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func newLink() *link {
	return &link{
		queue: make(chan protocol.Frame, queueSize),
		done:  make(chan struct{}),
	}
}

func (l *link) start(peer *transport.Channel) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case f := <-l.queue:
				peer.Deliver(f)
			case <-l.done:
				return
			}
		}
	}()
}

// Post implements transport.Poster
func (l *link) Post(ctx context.Context, frame protocol.Frame) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return types.NewError(types.ErrCodeUnavailable, "pipe is closed")
	}
	l.mu.Unlock()

	select {
	case l.queue <- frame.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return types.NewError(types.ErrCodeUnavailable, "pipe is closed")
	}
}

func (l *link) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()
	l.wg.Wait()
}
