package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/types"
)

const inboxSize = 256

// ErrNoHandler is the error text sent back for a request nobody handles
const ErrNoHandler = "no handler"

// Poster posts a frame to the other party. Delivery is asynchronous and
// frames posted by one side arrive at the other in the same order.
type Poster interface {
	Post(ctx context.Context, frame protocol.Frame) error
}

// PosterFunc is a function adapter for Poster
type PosterFunc func(ctx context.Context, frame protocol.Frame) error

// Post implements Poster
func (f PosterFunc) Post(ctx context.Context, frame protocol.Frame) error {
	return f(ctx, frame)
}

// Message is an inbound request or event handed to a Handler
type Message struct {
	ID      string
	Kind    protocol.Kind
	Type    protocol.MessageType
	Payload json.RawMessage
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return types.WrapError(types.ErrCodeInvalidArgument, fmt.Sprintf("decode %s payload", m.Type), err)
	}
	return nil
}

// Handler handles one inbound message. For a request, the returned value
// becomes the reply payload; a nil value replies without payload. The return
// value of an event handler is ignored.
type Handler func(ctx context.Context, msg Message) (any, error)

// Stats contains channel counters
type Stats struct {
	RequestsSent      int64
	EventsSent        int64
	ResponsesReceived int64
	Dispatched        int64
	Unhandled         int64
	Dropped           int64
	Pending           int
	Handlers          int
}

// Channel is one party's end of a hub/module connection
type Channel struct {
	poster Poster
	logger *logger.Logger

	mu       sync.Mutex
	pending  map[string]chan protocol.Frame
	handlers map[protocol.MessageType][]*Subscription
	nextSub  uint64
	closed   bool
	stats    Stats

	inbox   chan protocol.Frame
	closeCh chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewChannel creates a channel posting through poster. A nil poster yields a
// detached channel.
func NewChannel(poster Poster, log *logger.Logger) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		poster:   poster,
		logger:   logger.OrGlobal(log).With("component", "transport"),
		pending:  make(map[string]chan protocol.Frame),
		handlers: make(map[protocol.MessageType][]*Subscription),
		inbox:    make(chan protocol.Frame, inboxSize),
		closeCh:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	c.wg.Add(1)
	go c.processFrames()
	return c
}

// Detached creates a channel with no other party
func Detached(log *logger.Logger) *Channel {
	return NewChannel(nil, log)
}

// Embedded reports whether the channel has another party to talk to
func (c *Channel) Embedded() bool {
	return c.poster != nil
}

// Send posts a request and waits for its response. The reply payload is
// decoded into out when out is non-nil and the reply carries a payload.
// On a detached channel Send returns nil immediately and out is untouched.
// A request that is never answered blocks until ctx ends.
func (c *Channel) Send(ctx context.Context, typ protocol.MessageType, payload any, out any) error {
	if !c.Embedded() {
		return nil
	}

	id := types.GenerateID().String()
	frame, err := protocol.NewFrame(id, protocol.KindRequest, typ, payload)
	if err != nil {
		return types.WrapError(types.ErrCodeInvalidArgument, "failed to encode request", err)
	}

	replyCh := make(chan protocol.Frame, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.NewError(types.ErrCodeUnavailable, "channel is closed")
	}
	c.pending[id] = replyCh
	c.stats.RequestsSent++
	c.mu.Unlock()

	if err := c.poster.Post(ctx, frame); err != nil {
		c.dropPending(id)
		return types.WrapError(types.ErrCodeUnavailable, fmt.Sprintf("failed to post %s", typ), err)
	}

	select {
	case reply := <-replyCh:
		if reply.Error != "" {
			code := types.ErrCodeHandlerFailed
			if reply.Error == ErrNoHandler {
				code = types.ErrCodeNotFound
			}
			return types.NewError(code, fmt.Sprintf("%s: %s", typ, reply.Error))
		}
		if out != nil && len(reply.Payload) > 0 {
			if err := json.Unmarshal(reply.Payload, out); err != nil {
				return types.WrapError(types.ErrCodeInvalid, fmt.Sprintf("decode %s reply", typ), err)
			}
		}
		return nil
	case <-ctx.Done():
		c.dropPending(id)
		code := types.ErrCodeCanceled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = types.ErrCodeTimeout
		}
		return types.WrapError(code, fmt.Sprintf("%s request abandoned", typ), ctx.Err())
	case <-c.closeCh:
		c.dropPending(id)
		return types.NewError(types.ErrCodeUnavailable, "channel closed while awaiting reply")
	}
}

// Emit posts a fire-and-forget event. On a detached channel it returns nil.
func (c *Channel) Emit(ctx context.Context, typ protocol.MessageType, payload any) error {
	if !c.Embedded() {
		return nil
	}

	frame, err := protocol.NewFrame(types.GenerateID().String(), protocol.KindEvent, typ, payload)
	if err != nil {
		return types.WrapError(types.ErrCodeInvalidArgument, "failed to encode event", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.NewError(types.ErrCodeUnavailable, "channel is closed")
	}
	c.stats.EventsSent++
	c.mu.Unlock()

	if err := c.poster.Post(ctx, frame); err != nil {
		return types.WrapError(types.ErrCodeUnavailable, fmt.Sprintf("failed to post %s", typ), err)
	}
	return nil
}

// On registers h for inbound messages of type typ. Several handlers for the
// same type may coexist; all of them run, in registration order.
func (c *Channel) On(typ protocol.MessageType, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	sub := &Subscription{channel: c, typ: typ, id: c.nextSub, handler: h}
	sub.active.Store(true)
	c.handlers[typ] = append(c.handlers[typ], sub)
	return sub
}

// Deliver hands an inbound frame to the channel. Responses resolve their
// pending request immediately; requests and events are queued for the
// handler goroutine.
func (c *Channel) Deliver(frame protocol.Frame) {
	if err := frame.Validate(); err != nil {
		c.logger.Warn("Dropping malformed frame", "error", err)
		c.countDropped()
		return
	}

	if frame.Kind == protocol.KindResponse {
		c.resolve(frame)
		return
	}

	select {
	case c.inbox <- frame:
	case <-c.closeCh:
		c.countDropped()
	}
}

// Close stops the handler goroutine and fails every pending request.
// Closing twice is a no-op. Close must not be called from a Handler.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.logger.Debug("Channel closed")
	return nil
}

// Done is closed when the channel is closed
func (c *Channel) Done() <-chan struct{} {
	return c.closeCh
}

// Stats returns a snapshot of the channel counters
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Pending = len(c.pending)
	for _, subs := range c.handlers {
		s.Handlers += len(subs)
	}
	return s
}

func (c *Channel) resolve(frame protocol.Frame) {
	c.mu.Lock()
	replyCh, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
		c.stats.ResponsesReceived++
	} else {
		c.stats.Dropped++
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("Dropping unmatched response", "id", frame.ID, "type", frame.Type)
		return
	}
	replyCh <- frame
}

func (c *Channel) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Channel) countDropped() {
	c.mu.Lock()
	c.stats.Dropped++
	c.mu.Unlock()
}

func (c *Channel) processFrames() {
	defer c.wg.Done()
	for {
		select {
		case frame := <-c.inbox:
			c.dispatch(frame)
		case <-c.closeCh:
			return
		}
	}
}

func (c *Channel) dispatch(frame protocol.Frame) {
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.handlers[frame.Type]...)
	if len(subs) == 0 {
		c.stats.Unhandled++
	} else {
		c.stats.Dispatched++
	}
	c.mu.Unlock()

	msg := Message{ID: frame.ID, Kind: frame.Kind, Type: frame.Type, Payload: frame.Payload}

	var (
		reply   any
		err     error
		handled bool
	)
	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		handled = true
		result, herr := c.invoke(sub, msg)
		if herr != nil {
			err = herr
			continue
		}
		if result != nil {
			reply = result
		}
	}

	if frame.Kind != protocol.KindRequest {
		if err != nil {
			c.logger.Warn("Event handler failed", "type", frame.Type, "error", err)
		}
		return
	}

	resp := protocol.Frame{ID: frame.ID, Kind: protocol.KindResponse, Type: frame.Type}
	switch {
	case !handled:
		c.logger.Debug("No handler for request", "type", frame.Type)
		resp.Error = ErrNoHandler
	case err != nil:
		c.logger.Warn("Request handler failed", "type", frame.Type, "error", err)
		resp.Error = err.Error()
	default:
		encoded, encErr := protocol.NewFrame(frame.ID, protocol.KindResponse, frame.Type, reply)
		if encErr != nil {
			resp.Error = encErr.Error()
		} else {
			resp = encoded
		}
	}

	if !c.Embedded() {
		return
	}
	if perr := c.poster.Post(c.ctx, resp); perr != nil {
		c.logger.Warn("Failed to post response", "type", frame.Type, "error", perr)
	}
}

func (c *Channel) invoke(sub *Subscription, msg Message) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(c.ctx, msg)
}

func (c *Channel) remove(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.handlers[sub.typ]
	for i, s := range subs {
		if s == sub {
			c.handlers[sub.typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.handlers[sub.typ]) == 0 {
		delete(c.handlers, sub.typ)
	}
}
