package grpcbridge

import (
	"errors"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/types"
)

// Server hosts the bridge and health services on a TCP listener
type Server struct {
	server   *grpc.Server
	health   *HealthServer
	logger   *logger.Logger
	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a gRPC server with the bridge service wired to accept
func NewServer(accept AcceptFunc, log *logger.Logger) *Server {
	log = logger.OrGlobal(log).With("component", "grpc_server")
	health := NewHealthServer(log)

	srv := grpc.NewServer(grpc.ChainStreamInterceptor(loggingStreamInterceptor(log)))
	NewService(accept, health, log).Register(srv)
	grpc_health_v1.RegisterHealthServer(srv, health)

	return &Server{server: srv, health: health, logger: log}
}

// Health returns the health server
func (s *Server) Health() *HealthServer {
	return s.health
}

// Start listens on addr and serves in the background
func (s *Server) Start(addr string) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeUnavailable, "failed to listen on "+addr, err)
	}
	return s.Serve(lis), nil
}

// Serve serves on lis in the background and returns its address
func (s *Server) Serve(lis net.Listener) net.Addr {
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server stopped", "error", err)
		}
	}()
	s.logger.Info("gRPC bridge listening", "addr", lis.Addr().String())
	return lis.Addr()
}

// Stop drains the server, forcing it down after timeout
func (s *Server) Stop(timeout time.Duration) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("Graceful stop timed out, forcing", "timeout", timeout.String())
		s.server.Stop()
	}
	s.wg.Wait()
}

func loggingStreamInterceptor(log *logger.Logger) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, stream)
		if err != nil {
			st, _ := status.FromError(err)
			log.Warn("Stream failed",
				"method", info.FullMethod,
				"code", st.Code().String(),
				"message", st.Message(),
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}
		log.Debug("Stream completed", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
}
