package wsbridge

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/transport"
)

// AcceptFunc is called for every module connection. The returned function,
// if any, runs when the connection ends.
type AcceptFunc func(moduleID string, ch *transport.Channel) (detach func())

// Handler upgrades GET {prefix}{moduleId} requests to bridge connections
type Handler struct {
	prefix   string
	accept   AcceptFunc
	logger   *logger.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
}

// NewHandler creates a bridge handler serving module ids below prefix
func NewHandler(prefix string, accept AcceptFunc, log *logger.Logger) *Handler {
	return &Handler{
		prefix: prefix,
		accept: accept,
		logger: logger.OrGlobal(log).With("component", "wsbridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[*Conn]struct{}),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	moduleID := strings.Trim(strings.TrimPrefix(r.URL.Path, h.prefix), "/")
	if moduleID == "" || strings.Contains(moduleID, "/") {
		http.Error(w, "module id required", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "module_id", moduleID, "error", err)
		return
	}

	log := h.logger.With("module_id", moduleID)
	conn := newConn(ws, log)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		_ = conn.Close()
		return
	}
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	detach := h.accept(moduleID, conn.Channel())
	conn.start()
	log.Info("Module connected", "remote", r.RemoteAddr)

	go func() {
		<-conn.Done()
		if detach != nil {
			detach()
		}
		_ = conn.Close()
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		log.Info("Module disconnected")
	}()
}

// Close closes every live connection and rejects new ones
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Len returns the number of live connections
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Dial connects a module to the hub bridge at baseURL (for example
// ws://localhost:8080/bridge) under moduleID.
func Dial(ctx context.Context, baseURL, moduleID string, log *logger.Logger) (*Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + url.PathEscape(moduleID)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	log = logger.OrGlobal(log).With("component", "wsbridge", "module_id", moduleID)
	conn := newConn(ws, log)
	conn.start()
	return conn, nil
}
