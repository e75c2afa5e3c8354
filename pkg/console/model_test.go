package console

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/hub"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/timer"
	"github.com/billm/framehub/pkg/types"
)

var demoUser = protocol.User{ID: "demo", Name: "Demo User"}

func newConsole(t *testing.T) (*Model, *hub.Host) {
	t.Helper()
	host := hub.NewHost(context.Background(), *config.Default(), registry.Default(), kvstore.NewMemory(),
		timer.NewFake(time.Unix(0, 0)), logger.Discard())
	host.Start(context.Background(), "/employees/list")
	m := NewModel(host, demoUser, "dev", logger.Discard())
	t.Cleanup(func() {
		m.Close()
		_ = host.Close()
	})
	return m, host
}

// TestLoginFollowsRedirect tests the login command
func TestLoginFollowsRedirect(t *testing.T) {
	m, host := newConsole(t)
	ctx := context.Background()

	assert.Equal(t, "/login", host.Snapshot().Route.Path)

	res := m.execute(ctx, "login")
	require.NoError(t, res.err)
	snap := host.Snapshot()
	assert.Equal(t, "/employees/list", snap.Route.Path)
	require.NotNil(t, snap.User)
	assert.Equal(t, "demo", snap.User.ID)

	m.execute(ctx, "logout")
	assert.Equal(t, "/login", host.Snapshot().Route.Path)
}

// TestNavigationCommands tests path, back and forward commands
func TestNavigationCommands(t *testing.T) {
	m, host := newConsole(t)
	ctx := context.Background()
	require.NoError(t, m.execute(ctx, "login").err)

	m.execute(ctx, "/payroll/history")
	assert.Equal(t, "payroll", host.Snapshot().ModuleID)

	require.NoError(t, m.execute(ctx, "back").err)
	assert.Equal(t, "/employees/list", host.Snapshot().Route.Path)
	require.NoError(t, m.execute(ctx, "forward").err)
	assert.Equal(t, "/payroll/history", host.Snapshot().Route.Path)

	res := m.execute(ctx, "forward")
	assert.True(t, types.IsErrCode(res.err, types.ErrCodeFailedPrecondition))
}

// TestSidebarCommands tests collapse and toggle
func TestSidebarCommands(t *testing.T) {
	m, host := newConsole(t)
	ctx := context.Background()

	res := m.execute(ctx, "collapse")
	assert.Equal(t, "sidebar collapsed", res.status)
	assert.True(t, host.Snapshot().Sidebar.Collapsed)

	res = m.execute(ctx, "toggle settings")
	assert.Equal(t, "settings expanded", res.status)
	res = m.execute(ctx, "toggle settings")
	assert.Equal(t, "settings folded", res.status)

	res = m.execute(ctx, "toggle")
	assert.True(t, types.IsErrCode(res.err, types.ErrCodeInvalidArgument))
	res = m.execute(ctx, "dance")
	assert.True(t, types.IsErrCode(res.err, types.ErrCodeInvalidArgument))
	assert.True(t, m.execute(ctx, "quit").quit)
}

// TestEnterRunsInputLine tests submitting the input line
func TestEnterRunsInputLine(t *testing.T) {
	m, host := newConsole(t)
	require.NoError(t, m.execute(context.Background(), "login").err)

	m.input.SetValue("/benefits/health/plans")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	_, _ = m.Update(msg)
	assert.Equal(t, "benefits", host.Snapshot().ModuleID)
	assert.Equal(t, "benefits", m.snap.ModuleID)
	assert.Contains(t, m.View(), "/benefits/health/plans")
}

// TestShellChangesRefreshSnapshot tests redraw on shell changes
func TestShellChangesRefreshSnapshot(t *testing.T) {
	m, host := newConsole(t)
	wait := m.waitForChange()

	host.ToggleCollapse(context.Background())
	msg := wait()
	_, next := m.Update(msg)
	assert.NotNil(t, next)
	assert.True(t, m.snap.Sidebar.Collapsed)
}

// TestRenderSidebar tests sidebar rendering
func TestRenderSidebar(t *testing.T) {
	reg := registry.Default()
	snap := hub.Snapshot{
		Sidebar: protocol.SidebarState{ExpandedSections: []string{"hr", "payroll"}},
		Active:  reg.ActiveNav("/payroll/run"),
	}

	out := renderSidebar(reg, snap)
	assert.Contains(t, out, "HR Management")
	assert.Contains(t, out, "Run Payroll")
	assert.NotContains(t, out, "Employee List")
	assert.NotContains(t, out, "Health")

	snap.Sidebar.Collapsed = true
	out = renderSidebar(reg, snap)
	assert.NotContains(t, out, "HR Management")
}

// TestRenderContent tests content rendering
func TestRenderContent(t *testing.T) {
	out := renderContent(hub.Snapshot{
		Route:       protocol.Route{Path: "/errors/500"},
		Error:       protocol.ErrorInternal,
		Breadcrumbs: []protocol.BreadcrumbItem{{Label: "Payroll"}, {Label: "Run"}},
	})
	assert.Contains(t, out, "error 500")
	assert.Contains(t, out, "Payroll / Run")
	assert.Contains(t, out, "attached none")
}
