package module

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/navsync"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/sidebar"
	"github.com/billm/framehub/pkg/timer"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/types"
)

// DefaultSidebarKey is the kvstore key of a module's sidebar copy
const DefaultSidebarKey = "module-sidebar-state"

// Options configures a Runtime
type Options struct {
	ModuleID string
	// InitialPath is the module path used when the hub location is not
	// under this module, or when running standalone
	InitialPath string
	Navigation  config.NavigationConfig
	Clock       timer.Clock
	// SidebarKV persists the module's sidebar copy; nil keeps it in memory
	SidebarKV  kvstore.Store
	SidebarKey string
}

// Runtime hosts one module: its router, navigation synchronizer, user and
// sidebar copy
type Runtime struct {
	opts    Options
	client  *Client
	reg     *registry.Registry
	router  *navsync.MemoryRouter
	nav     *navsync.Synchronizer
	sidebar *sidebar.Store
	subs    *transport.SubscriptionSet
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	started     bool
	closed      bool
	user        *protocol.User
	breadcrumbs []protocol.BreadcrumbItem
	unwire      []func()
}

// NewRuntime creates a runtime for opts.ModuleID. Nothing talks to the hub
// until Start.
func NewRuntime(client *Client, reg *registry.Registry, opts Options, log *logger.Logger) *Runtime {
	if opts.InitialPath == "" {
		opts.InitialPath = "/"
	}
	if opts.Clock == nil {
		opts.Clock = timer.Real()
	}
	if opts.SidebarKey == "" {
		opts.SidebarKey = DefaultSidebarKey
	}
	log = logger.OrGlobal(log).With("component", "module_runtime", "module_id", opts.ModuleID)

	ctx, cancel := context.WithCancel(context.Background())
	router := navsync.NewMemoryRouter(opts.InitialPath)
	r := &Runtime{
		opts:   opts,
		client: client,
		reg:    reg,
		router: router,
		subs:   transport.NewSubscriptionSet(),
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
	r.nav = navsync.New(opts.Clock, router, client, navsync.Options{
		ModuleID:     opts.ModuleID,
		Debounce:     opts.Navigation.Debounce,
		Settle:       opts.Navigation.Settle,
		ExcludePaths: opts.Navigation.ExcludePaths,
	}, log)
	r.sidebar = sidebar.New(ctx, opts.SidebarKV, opts.SidebarKey, log)
	return r
}

// Start joins the hub: it moves the router to the hub location when that
// location belongs to this module, starts following hub route changes,
// announces readiness, then fetches the user and sidebar state. Failures
// of the initial fetch are logged and leave the defaults in place.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return types.NewError(types.ErrCodeUnavailable, "runtime is closed")
	}
	if r.started {
		r.mu.Unlock()
		return types.NewError(types.ErrCodeFailedPrecondition, "runtime already started")
	}
	r.started = true
	r.mu.Unlock()

	start := time.Now()
	if r.client.Embedded() {
		r.applyInitialRoute(ctx)
	}

	// the hub sends ROUTE_CHANGE as soon as it has seen READY
	r.wireNavigation()

	if err := r.client.NotifyReady(ctx, r.opts.ModuleID); err != nil {
		r.logger.Warn("Failed to announce readiness", "error", err)
	}

	var (
		user  *protocol.User
		state = protocol.DefaultSidebarState()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := r.client.GetUser(gctx)
		if err != nil {
			return fmt.Errorf("fetch user: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		s, err := r.client.GetSidebarState(gctx)
		if err != nil {
			return fmt.Errorf("fetch sidebar state: %w", err)
		}
		state = s
		return nil
	})
	if err := g.Wait(); err != nil {
		r.logger.Warn("Initial hub fetch failed", "error", err)
	}

	r.mu.Lock()
	r.user = user
	r.mu.Unlock()
	r.sidebar.Seed(ctx, state, r.reg.DefaultExpandedSections(r.HubPath()))

	r.wireSidebar()
	r.logger.Info("Module runtime started",
		"embedded", r.client.Embedded(),
		"path", r.router.Current(),
		"duration", time.Since(start))
	return nil
}

// applyInitialRoute positions the router before any observer is wired, so
// the initial location is not reported back to the hub
func (r *Runtime) applyInitialRoute(ctx context.Context) {
	route, err := r.client.GetInitialRoute(ctx)
	if err != nil {
		r.logger.Warn("Failed to fetch initial route", "error", err)
		return
	}
	if !registry.HasPathPrefix(route.Path, navsync.Prefix(r.opts.ModuleID)) {
		r.logger.Debug("Hub location belongs to another module", "path", route.Path)
		return
	}
	target := protocol.Route{Path: navsync.ModulePath(r.opts.ModuleID, route.Path), Query: route.Query}
	if err := r.router.Replace(ctx, target.String()); err != nil {
		r.logger.Warn("Failed to apply initial route", "path", target.String(), "error", err)
	}
}

func (r *Runtime) wireNavigation() {
	stopHistory := r.router.OnChange(r.nav.HistoryChanged)
	teardown := r.subs.Install(func() []*transport.Subscription {
		return []*transport.Subscription{
			r.client.OnRouteChange(func(route protocol.Route) {
				if err := r.nav.ApplyRouteChange(r.ctx, route); err != nil {
					r.logger.Warn("Failed to apply hub route change", "path", route.Path, "error", err)
				}
			}),
		}
	})

	r.mu.Lock()
	r.unwire = append(r.unwire, stopHistory, teardown)
	r.mu.Unlock()
}

// wireSidebar runs after Seed so the adopted hub state is not sent back
func (r *Runtime) wireSidebar() {
	stopSidebar := r.sidebar.OnChange(func(state protocol.SidebarState) {
		if err := r.client.SetSidebarState(r.ctx, state); err != nil {
			r.logger.Warn("Failed to replicate sidebar state", "error", err)
		}
	})

	r.mu.Lock()
	r.unwire = append(r.unwire, stopSidebar)
	r.mu.Unlock()
}

// Client returns the hub client
func (r *Runtime) Client() *Client {
	return r.client
}

// Router returns the module's local router
func (r *Runtime) Router() *navsync.MemoryRouter {
	return r.router
}

// CurrentPath returns the module-relative location
func (r *Runtime) CurrentPath() string {
	return r.router.Current()
}

// HubPath returns the current location in the hub's namespace
func (r *Runtime) HubPath() string {
	return navsync.HubPath(r.opts.ModuleID, r.router.Current())
}

// User returns a copy of the signed-in user fetched at start, or nil
func (r *Runtime) User() *protocol.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return nil
	}
	u := *r.user
	return &u
}

// Navigate pushes a module path and tells the hub immediately
func (r *Runtime) Navigate(ctx context.Context, modulePath string) error {
	return r.nav.Push(ctx, modulePath)
}

// Replace is Navigate without a new history entry
func (r *Runtime) Replace(ctx context.Context, modulePath string) error {
	return r.nav.Replace(ctx, modulePath)
}

// Back moves the local router back; the hub hears about it after the
// debounce window
func (r *Runtime) Back() bool {
	return r.router.Back()
}

// Forward moves the local router forward
func (r *Runtime) Forward() bool {
	return r.router.Forward()
}

// LinkActivated routes an internal href inside the module. It reports
// whether the default link action must be suppressed.
func (r *Runtime) LinkActivated(ctx context.Context, href string) bool {
	return r.nav.LinkActivated(ctx, href)
}

// Breadcrumbs returns the trail last set by the module
func (r *Runtime) Breadcrumbs() []protocol.BreadcrumbItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.BreadcrumbItem(nil), r.breadcrumbs...)
}

// SetBreadcrumbs keeps items locally and forwards them to the hub
func (r *Runtime) SetBreadcrumbs(ctx context.Context, items []protocol.BreadcrumbItem) error {
	r.mu.Lock()
	r.breadcrumbs = append([]protocol.BreadcrumbItem(nil), items...)
	r.mu.Unlock()
	return r.client.SetBreadcrumbs(ctx, items)
}

// Sidebar returns the module's copy of the sidebar state
func (r *Runtime) Sidebar() protocol.SidebarState {
	return r.sidebar.State()
}

// ToggleSidebarCollapse flips the collapsed flag and replicates it
func (r *Runtime) ToggleSidebarCollapse(ctx context.Context) protocol.SidebarState {
	return r.sidebar.ToggleCollapse(ctx)
}

// ToggleSidebarSection flips a section's membership and replicates it
func (r *Runtime) ToggleSidebarSection(ctx context.Context, sectionID string) protocol.SidebarState {
	return r.sidebar.ToggleSection(ctx, sectionID)
}

// Logout signs the user out of the hub
func (r *Runtime) Logout(ctx context.Context) error {
	return r.client.Logout(ctx)
}

// Close stops following the hub and cancels pending navigation timers
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unwire := r.unwire
	r.unwire = nil
	r.mu.Unlock()

	for _, fn := range unwire {
		fn()
	}
	r.nav.Close()
	r.cancel()
}
