package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/transport/grpcbridge"
	"github.com/billm/framehub/pkg/transport/wsbridge"
	"github.com/billm/framehub/pkg/types"
)

const (
	readHeaderTimeout = 10 * time.Second
	grpcStopTimeout   = 5 * time.Second
)

// Server exposes a Host to module processes over WebSocket and gRPC, plus a
// small JSON API for inspecting and driving the shell
type Server struct {
	cfg    config.HubConfig
	host   *Host
	logger *logger.Logger
	bridge *wsbridge.Handler
	grpc   *grpcbridge.Server

	mu       sync.Mutex
	http     *http.Server
	httpAddr net.Addr
	grpcAddr net.Addr
	wg       sync.WaitGroup
}

// NewServer creates a server for host. Nothing listens until Start.
func NewServer(cfg config.HubConfig, host *Host, log *logger.Logger) *Server {
	log = logger.OrGlobal(log).With("component", "hub_server")
	s := &Server{
		cfg:    cfg,
		host:   host,
		logger: log,
		bridge: wsbridge.NewHandler(cfg.BridgePath, host.Attach, log),
	}
	if cfg.GRPCAddr != "" {
		s.grpc = grpcbridge.NewServer(host.Attach, log)
	}
	return s
}

// Handler returns the HTTP routes of the hub
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.BridgePath, s.bridge)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/shell", s.handleShell)
	mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	mux.HandleFunc("POST /api/back", s.handleHistory(s.host.Back))
	mux.HandleFunc("POST /api/forward", s.handleHistory(s.host.Forward))
	return mux
}

// Start listens on the configured addresses and serves in the background
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return types.WrapError(types.ErrCodeUnavailable, "failed to listen on "+s.cfg.ListenAddr, err)
	}

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: readHeaderTimeout}
	s.mu.Lock()
	s.http = srv
	s.httpAddr = lis.Addr()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", "error", err)
		}
	}()
	s.logger.Info("Hub listening", "addr", lis.Addr().String(), "bridge_path", s.cfg.BridgePath)

	if s.grpc != nil {
		addr, err := s.grpc.Start(s.cfg.GRPCAddr)
		if err != nil {
			_ = srv.Close()
			return err
		}
		s.mu.Lock()
		s.grpcAddr = addr
		s.mu.Unlock()
	}
	return nil
}

// Addr returns the HTTP listen address once started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// GRPCAddr returns the gRPC listen address, nil when disabled
func (s *Server) GRPCAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grpcAddr
}

// Shutdown stops accepting requests, closes module connections and the host
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var firstErr error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	s.bridge.Close()
	if s.grpc != nil {
		s.grpc.Stop(grpcStopTimeout)
	}
	if err := s.host.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.wg.Wait()
	return firstErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"attached": s.host.Snapshot().Attached,
	})
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Snapshot())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}
	s.host.Navigate(r.Context(), req.Path)
	writeJSON(w, http.StatusOK, s.host.Snapshot())
}

func (s *Server) handleHistory(move func(context.Context) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !move(r.Context()) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no history entry"})
			return
		}
		writeJSON(w, http.StatusOK, s.host.Snapshot())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
