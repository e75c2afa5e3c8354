package grpcbridge

import (
	"context"
	"io"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport"
)

const (
	// ServiceName is the fully qualified bridge service name
	ServiceName = "framehub.bridge.v1.Bridge"
	// ConnectMethod is the full method name of the bidirectional stream
	ConnectMethod = "/" + ServiceName + "/Connect"
	// ModuleIDKey is the metadata key carrying the connecting module id
	ModuleIDKey = "x-module-id"
)

// AcceptFunc is called for every module stream. The returned function, if
// any, runs when the stream ends.
type AcceptFunc func(moduleID string, ch *transport.Channel) (detach func())

// BridgeServer is the handler type registered for the bridge service
type BridgeServer interface {
	Connect(stream grpc.ServerStream) error
}

// ServiceDesc describes the bridge service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BridgeServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "framehub/bridge.proto",
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(BridgeServer).Connect(stream)
}

// Service accepts module streams and hands their channels to accept
type Service struct {
	accept AcceptFunc
	health *HealthServer
	logger *logger.Logger
}

// NewService creates the bridge service. health may be nil.
func NewService(accept AcceptFunc, health *HealthServer, log *logger.Logger) *Service {
	return &Service{
		accept: accept,
		health: health,
		logger: logger.OrGlobal(log).With("component", "grpcbridge"),
	}
}

// Register registers the service on s
func (s *Service) Register(srv *grpc.Server) {
	srv.RegisterService(&ServiceDesc, s)
}

// Connect serves one module stream until either side ends it
func (s *Service) Connect(stream grpc.ServerStream) error {
	moduleID := moduleIDFromContext(stream.Context())
	if moduleID == "" {
		return status.Error(codes.InvalidArgument, "missing "+ModuleIDKey+" metadata")
	}

	log := s.logger.With("module_id", moduleID)
	poster := &streamPoster{stream: stream}
	ch := transport.NewChannel(poster, log)
	defer func() { _ = ch.Close() }()

	detach := s.accept(moduleID, ch)
	if detach != nil {
		defer detach()
	}
	if s.health != nil {
		s.health.SetServing(HealthServiceFor(moduleID))
		defer s.health.SetNotServing(HealthServiceFor(moduleID))
	}
	log.Info("Module stream opened")

	err := receiveFrames(stream, ch, log)
	log.Info("Module stream closed")
	if err == io.EOF {
		return nil
	}
	return err
}

// HealthServiceFor returns the health service name tracking a module stream
func HealthServiceFor(moduleID string) string {
	return ServiceName + "/" + moduleID
}

func moduleIDFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(ModuleIDKey)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// frameStream is the part of grpc.ServerStream and grpc.ClientStream the bridge uses
type frameStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// streamPoster serializes SendMsg calls, which gRPC forbids running concurrently
type streamPoster struct {
	mu     sync.Mutex
	stream frameStream
}

// Post implements transport.Poster
func (p *streamPoster) Post(ctx context.Context, frame protocol.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream.SendMsg(&frame)
}

func receiveFrames(stream frameStream, ch *transport.Channel, log *logger.Logger) error {
	for {
		var frame protocol.Frame
		if err := stream.RecvMsg(&frame); err != nil {
			return err
		}
		if err := frame.Validate(); err != nil {
			log.Warn("Dropping invalid frame", "error", err)
			continue
		}
		ch.Deliver(frame)
	}
}
