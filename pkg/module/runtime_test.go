package module

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/hub"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/navsync"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/timer"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/transport/memory"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type hosted struct {
	host    *hub.Host
	clock   *timer.Fake
	runtime *Runtime
}

// newHosted starts a hub at path and joins moduleID to it over a pipe
func newHosted(t *testing.T, moduleID, path string) *hosted {
	t.Helper()
	ctx := context.Background()
	clock := timer.NewFake(time.Unix(0, 0))

	host := hub.NewHost(ctx, *config.Default(), registry.Default(), kvstore.NewMemory(), clock, logger.Discard())
	require.NoError(t, host.Login(ctx, protocol.User{ID: "u-1", Name: "Ada Lovelace"}, ""))
	// signing in lands on the home route, then the hub moves to path
	host.Start(ctx, path)

	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	detach := host.Attach(moduleID, hubEnd)

	rt := NewRuntime(NewClient(moduleEnd, time.Second, logger.Discard()), registry.Default(), Options{
		ModuleID:   moduleID,
		Navigation: config.DefaultNavigationConfig(),
		Clock:      clock,
	}, logger.Discard())
	t.Cleanup(func() {
		rt.Close()
		detach()
		closer()
		_ = host.Close()
	})
	return &hosted{host: host, clock: clock, runtime: rt}
}

// TestRuntimeJoinsHub tests starting a module against a hub
func TestRuntimeJoinsHub(t *testing.T) {
	h := newHosted(t, "employees", "/employees/list/42?sort=name")
	require.NoError(t, h.runtime.Start(context.Background()))

	assert.Equal(t, "/list/42?sort=name", h.runtime.CurrentPath())
	require.NotNil(t, h.runtime.User())
	assert.Equal(t, "u-1", h.runtime.User().ID)
	assert.ElementsMatch(t, []string{"hr", "employees"}, h.runtime.Sidebar().ExpandedSections)

	snap := h.host.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"employees"}, snap.Attached)

	// the initial location is not reported back
	h.clock.Advance(time.Second)
	assert.Equal(t, 0, h.runtime.nav.Notified())

	err := h.runtime.Start(context.Background())
	assert.Error(t, err)
}

// TestRouteChangeDuringStartIsApplied tests a hub that navigates right
// after READY, while the module is still fetching its user
func TestRouteChangeDuringStartIsApplied(t *testing.T) {
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	defer closer()

	hubEnd.On(protocol.GetInitialRoute, func(ctx context.Context, msg transport.Message) (any, error) {
		return protocol.Route{Path: "/employees/list"}, nil
	})
	hubEnd.On(protocol.Ready, func(ctx context.Context, msg transport.Message) (any, error) {
		return nil, nil
	})
	hubEnd.On(protocol.GetUser, func(ctx context.Context, msg transport.Message) (any, error) {
		if err := hubEnd.Emit(ctx, protocol.RouteChange, protocol.Route{Path: "/employees/org"}); err != nil {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
		return protocol.UserResponse{User: &protocol.User{ID: "u-1"}}, nil
	})
	hubEnd.On(protocol.GetSidebarState, func(ctx context.Context, msg transport.Message) (any, error) {
		return protocol.DefaultSidebarState(), nil
	})

	clock := timer.NewFake(time.Unix(0, 0))
	rt := NewRuntime(NewClient(moduleEnd, time.Second, logger.Discard()), registry.Default(), Options{
		ModuleID:   "employees",
		Navigation: config.DefaultNavigationConfig(),
		Clock:      clock,
	}, logger.Discard())
	defer rt.Close()

	require.NoError(t, rt.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return rt.CurrentPath() == "/org"
	}, waitFor, tick)
	assert.Zero(t, moduleEnd.Stats().Unhandled)
	assert.Equal(t, 0, rt.nav.Notified())
}

// TestRuntimeIgnoresForeignInitialRoute tests a hub location owned by another module
func TestRuntimeIgnoresForeignInitialRoute(t *testing.T) {
	h := newHosted(t, "employees", "/payroll/run")
	require.NoError(t, h.runtime.Start(context.Background()))
	assert.Equal(t, "/", h.runtime.CurrentPath())
}

// TestModuleNavigationReachesHub tests module navigation seen by the hub
func TestModuleNavigationReachesHub(t *testing.T) {
	ctx := context.Background()
	h := newHosted(t, "employees", "/employees/list/42")
	require.NoError(t, h.runtime.Start(ctx))

	require.NoError(t, h.runtime.Navigate(ctx, "/list/43"))
	assert.Equal(t, "/list/43", h.runtime.CurrentPath())
	assert.Eventually(t, func() bool {
		return h.host.Snapshot().Route.Path == "/employees/list/43"
	}, waitFor, tick)
	assert.True(t, h.host.Snapshot().CanBack)
	assert.Equal(t, 1, h.runtime.nav.Notified())

	// in-module back is debounced
	require.True(t, h.runtime.Back())
	assert.Equal(t, "/list/42", h.runtime.CurrentPath())
	h.clock.Advance(50 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return h.host.Snapshot().Route.Path == "/employees/list/42"
	}, waitFor, tick)
}

// TestHubRouteChangeIsNotEchoed tests that hub navigation is not reported back
func TestHubRouteChangeIsNotEchoed(t *testing.T) {
	ctx := context.Background()
	h := newHosted(t, "employees", "/employees/list")
	require.NoError(t, h.runtime.Start(ctx))

	h.host.Navigate(ctx, "/employees/org?team=eng")
	assert.Eventually(t, func() bool {
		return h.runtime.CurrentPath() == "/org?team=eng"
	}, waitFor, tick)

	assert.Eventually(t, func() bool {
		h.clock.Advance(10 * time.Millisecond)
		return h.runtime.nav.State() == navsync.Idle
	}, waitFor, tick)
	h.clock.Advance(time.Second)
	assert.Equal(t, 0, h.runtime.nav.Notified())
	assert.Equal(t, "/employees/org", h.host.Snapshot().Route.Path)
}

// TestLinkActivation tests link activation in a hosted module
func TestLinkActivation(t *testing.T) {
	ctx := context.Background()
	h := newHosted(t, "employees", "/employees/list")
	require.NoError(t, h.runtime.Start(ctx))

	assert.False(t, h.runtime.LinkActivated(ctx, "https://example.com/docs"))
	assert.False(t, h.runtime.LinkActivated(ctx, "#top"))
	assert.True(t, h.runtime.LinkActivated(ctx, "/reports"))

	assert.Equal(t, "/reports", h.runtime.CurrentPath())
	assert.Eventually(t, func() bool {
		return h.host.Snapshot().Route.Path == "/employees/reports"
	}, waitFor, tick)
}

// TestSidebarTogglesReplicateToHub tests sidebar replication
func TestSidebarTogglesReplicateToHub(t *testing.T) {
	ctx := context.Background()
	h := newHosted(t, "benefits", "/benefits/health/plans")
	require.NoError(t, h.runtime.Start(ctx))

	h.runtime.ToggleSidebarSection(ctx, "settings")
	state := h.runtime.ToggleSidebarCollapse(ctx)
	assert.True(t, state.Collapsed)

	hubState := h.host.Snapshot().Sidebar
	assert.True(t, hubState.Collapsed)
	assert.ElementsMatch(t, []string{"hr", "employees", "benefits", "health", "settings"}, hubState.ExpandedSections)
}

// TestBreadcrumbsAndLogout tests breadcrumbs and logout
func TestBreadcrumbsAndLogout(t *testing.T) {
	ctx := context.Background()
	h := newHosted(t, "payroll", "/payroll/run")
	require.NoError(t, h.runtime.Start(ctx))

	items := []protocol.BreadcrumbItem{{Label: "Payroll", Path: "/payroll"}, {Label: "Run"}}
	require.NoError(t, h.runtime.SetBreadcrumbs(ctx, items))
	assert.Equal(t, items, h.runtime.Breadcrumbs())
	assert.Equal(t, items, h.host.Snapshot().Breadcrumbs)

	require.NoError(t, h.runtime.Logout(ctx))
	snap := h.host.Snapshot()
	assert.Equal(t, "/login", snap.Route.Path)
	assert.Nil(t, snap.User)
}

// TestStandaloneRuntime tests a runtime with no hub
func TestStandaloneRuntime(t *testing.T) {
	ctx := context.Background()
	clock := timer.NewFake(time.Unix(0, 0))
	kv := kvstore.NewMemory()
	client := NewClient(transport.Detached(logger.Discard()), time.Second, logger.Discard())

	rt := NewRuntime(client, registry.Default(), Options{
		ModuleID:    "payroll",
		InitialPath: "/history",
		Navigation:  config.DefaultNavigationConfig(),
		Clock:       clock,
		SidebarKV:   kv,
	}, logger.Discard())
	defer rt.Close()

	require.NoError(t, rt.Start(ctx))
	assert.Nil(t, rt.User())
	assert.Equal(t, "/payroll/history", rt.HubPath())
	assert.Equal(t, []string{"hr", "payroll"}, rt.Sidebar().ExpandedSections)

	require.NoError(t, rt.Navigate(ctx, "/settings"))
	assert.Equal(t, "/settings", rt.CurrentPath())
	rt.ToggleSidebarSection(ctx, "benefits")

	var persisted protocol.SidebarState
	require.NoError(t, kvstore.GetJSON(ctx, kv, DefaultSidebarKey, &persisted))
	assert.Equal(t, []string{"hr", "payroll", "benefits"}, persisted.ExpandedSections)
}

// TestClosedRuntimeRefusesStart tests Start after Close
func TestClosedRuntimeRefusesStart(t *testing.T) {
	rt := NewRuntime(NewClient(transport.Detached(logger.Discard()), 0, logger.Discard()), registry.Default(), Options{ModuleID: "employees"}, logger.Discard())
	rt.Close()
	rt.Close()
	assert.Error(t, rt.Start(context.Background()))
}
