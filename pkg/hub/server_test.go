package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport/wsbridge"
)

func newTestServer(t *testing.T) (*testHub, *httptest.Server) {
	t.Helper()
	th := newTestHub(t, true)
	srv := NewServer(config.DefaultHubConfig(), th.host, logger.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return th, ts
}

func getShell(t *testing.T, url string) Snapshot {
	t.Helper()
	resp, err := http.Get(url + "/api/shell")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

// TestShellAPI tests the shell HTTP API
func TestShellAPI(t *testing.T) {
	th, ts := newTestServer(t)
	th.host.Start(context.Background(), "/employees/list")

	snap := getShell(t, ts.URL)
	assert.Equal(t, "/employees/list", snap.Route.Path)
	assert.Equal(t, "employees", snap.ModuleID)

	body := bytes.NewBufferString(`{"path":"/payroll/settings"}`)
	resp, err := http.Post(ts.URL+"/api/navigate", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payroll", getShell(t, ts.URL).ModuleID)

	resp, err = http.Post(ts.URL+"/api/back", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/employees/list", getShell(t, ts.URL).Route.Path)

	resp, err = http.Post(ts.URL+"/api/back", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/navigate", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestWebSocketModuleAttaches tests a module joining over WebSocket
func TestWebSocketModuleAttaches(t *testing.T) {
	th, ts := newTestServer(t)
	th.host.Start(context.Background(), "/employees/list")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/bridge"
	conn, err := wsbridge.Dial(ctx, base, "employees", logger.Discard())
	require.NoError(t, err)
	defer conn.Close()

	var route protocol.Route
	require.NoError(t, conn.Channel().Send(ctx, protocol.GetInitialRoute, nil, &route))
	assert.Equal(t, "/employees/list", route.Path)
	require.NoError(t, conn.Channel().Send(ctx, protocol.Ready, protocol.ReadyPayload{ModuleID: "employees"}, nil))

	assert.False(t, getShell(t, ts.URL).Loading)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health struct {
		Status   string   `json:"status"`
		Attached []string `json:"attached"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, []string{"employees"}, health.Attached)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return len(th.host.Snapshot().Attached) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// TestServerStartAndShutdown tests starting and stopping the listeners
func TestServerStartAndShutdown(t *testing.T) {
	th := newTestHub(t, true)
	cfg := config.DefaultHubConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"

	srv := NewServer(cfg, th.host, logger.Discard())
	require.NoError(t, srv.Start())
	require.NotNil(t, srv.Addr())
	require.NotNil(t, srv.GRPCAddr())

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
