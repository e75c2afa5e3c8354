// Package wsbridge carries hub/module frames over a WebSocket connection.
// The hub serves one endpoint per module; a module process dials it.
package wsbridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/types"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 30 * time.Second

	// Send pings to the peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the peer.
	maxFrameSize = 1 << 20

	sendBuffer = 256
)

// Conn is a WebSocket connection acting as the Poster of a transport.Channel
type Conn struct {
	ws      *websocket.Conn
	channel *transport.Channel
	logger  *logger.Logger

	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// newConn wraps ws and creates its channel. Frames flow once start is called,
// so handlers can be registered on the channel first.
func newConn(ws *websocket.Conn, log *logger.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		logger: log,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	c.channel = transport.NewChannel(c, log)
	return c
}

func (c *Conn) start() {
	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

// Channel returns the transport channel bound to this connection
func (c *Conn) Channel() *transport.Channel {
	return c.channel
}

// Post implements transport.Poster
func (c *Conn) Post(ctx context.Context, frame protocol.Frame) error {
	data, err := frame.Encode()
	if err != nil {
		return types.WrapError(types.ErrCodeInvalidArgument, "encode frame", err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return types.NewError(types.ErrCodeUnavailable, "connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the connection has shut down
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close shuts the connection and its channel down
func (c *Conn) Close() error {
	c.shutdown()
	c.wg.Wait()
	return c.channel.Close()
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) readPump() {
	defer func() {
		c.shutdown()
		c.wg.Done()
	}()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(data)
		if err != nil {
			c.logger.Warn("Dropping invalid frame", "error", err)
			continue
		}
		c.channel.Deliver(frame)
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.shutdown()
		c.wg.Done()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			err := c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug("WebSocket close failed", "error", err)
			}
			return
		}
	}
}
