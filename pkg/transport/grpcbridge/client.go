package grpcbridge

import (
	"context"
	"io"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/types"
)

// Conn is a module's stream to the hub
type Conn struct {
	conn    *grpc.ClientConn
	stream  grpc.ClientStream
	poster  *streamPoster
	cancel  context.CancelFunc
	channel *transport.Channel
	logger  *logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the bridge stream to the hub at addr as moduleID
func Dial(ctx context.Context, addr, moduleID string, log *logger.Logger) (*Conn, error) {
	log = logger.OrGlobal(log).With("component", "grpcbridge", "module_id", moduleID)

	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeUnavailable, "failed to create client for "+addr, err)
	}

	streamCtx, cancel := context.WithCancel(metadata.AppendToOutgoingContext(context.Background(), ModuleIDKey, moduleID))
	stream, err := cc.NewStream(streamCtx, &ServiceDesc.Streams[0], ConnectMethod)
	if err != nil {
		cancel()
		_ = cc.Close()
		return nil, types.WrapError(types.ErrCodeUnavailable, "failed to open bridge stream", err)
	}
	if ctx.Err() != nil {
		cancel()
		_ = cc.Close()
		return nil, ctx.Err()
	}

	c := &Conn{
		conn:   cc,
		stream: stream,
		cancel: cancel,
		logger: log,
		done:   make(chan struct{}),
	}
	c.poster = &streamPoster{stream: stream}
	c.channel = transport.NewChannel(c.poster, log)

	go func() {
		err := receiveFrames(stream, c.channel, log)
		if err != nil && err != io.EOF && streamCtx.Err() == nil {
			log.Warn("Bridge stream ended", "error", err)
		}
		c.shutdown()
	}()
	return c, nil
}

// Channel returns the transport channel bound to the stream
func (c *Conn) Channel() *transport.Channel {
	return c.channel
}

// Done is closed once the stream has ended
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close ends the stream and releases the client connection
func (c *Conn) Close() error {
	c.poster.mu.Lock()
	_ = c.stream.CloseSend()
	c.poster.mu.Unlock()
	c.cancel()
	c.shutdown()
	_ = c.channel.Close()
	return c.conn.Close()
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}
