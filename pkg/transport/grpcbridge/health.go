package grpcbridge

import (
	"context"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/billm/framehub/internal/logger"
)

// HealthServer implements the gRPC health checking protocol. The empty
// service name reports the hub itself; each connected module is reported
// under HealthServiceFor(moduleID).
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	logger   *logger.Logger
	mu       sync.RWMutex
	statuses map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
	shutdown bool
}

// NewHealthServer creates a health server reporting the hub as serving
func NewHealthServer(log *logger.Logger) *HealthServer {
	return &HealthServer{
		logger: logger.OrGlobal(log).With("component", "health_server"),
		statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{
			"": grpc_health_v1.HealthCheckResponse_SERVING,
		},
	}
}

// Check implements the health check RPC. Unknown module services are NOT_FOUND.
func (s *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shutdown {
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING}, nil
	}

	st, ok := s.statuses[req.Service]
	if !ok {
		return nil, status.Error(codes.NotFound, "unknown service")
	}
	return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
}

// Watch sends the current status once and closes the stream
func (s *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: s.GetStatus(req.Service)})
}

// SetServing marks a service as serving
func (s *HealthServer) SetServing(service string) {
	s.setStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
}

// SetNotServing marks a service as not serving
func (s *HealthServer) SetNotServing(service string) {
	s.setStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Shutdown reports every service as NOT_SERVING from now on
func (s *HealthServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return
	}
	s.shutdown = true
	s.logger.Info("Health server shutdown")
}

// GetStatus returns the status of a service, SERVICE_UNKNOWN if never set
func (s *HealthServer) GetStatus(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shutdown {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	st, ok := s.statuses[service]
	if !ok {
		return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return st
}

func (s *HealthServer) setStatus(service string, st grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.statuses[service]
	s.statuses[service] = st
	s.logger.Debug("Health status updated", "service", service, "old_status", old.String(), "new_status", st.String())
}
