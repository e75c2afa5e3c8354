// Package hub is the shell side of framehub. A Host owns the hub location,
// history, session, sidebar state and the readiness watchdog, and serves one
// Dispatcher per attached module channel.
package hub

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/sidebar"
	"github.com/billm/framehub/pkg/timer"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/watchdog"
)

// ErrorRoutePrefix is the path under which hub error views live
const ErrorRoutePrefix = "/errors"

// Snapshot is a consistent view of the shell for rendering
type Snapshot struct {
	Route           protocol.Route            `json:"route"`
	Error           protocol.ErrorCode        `json:"error,omitempty"`
	ModuleID        string                    `json:"moduleId,omitempty"`
	ModuleURL       string                    `json:"moduleUrl,omitempty"`
	Loading         bool                      `json:"loading"`
	SkeletonVisible bool                      `json:"skeletonVisible"`
	Breadcrumbs     []protocol.BreadcrumbItem `json:"breadcrumbs"`
	Sidebar         protocol.SidebarState     `json:"sidebar"`
	User            *protocol.User            `json:"user"`
	Active          registry.ActiveNav        `json:"active"`
	CanBack         bool                      `json:"canBack"`
	CanForward      bool                      `json:"canForward"`
	Attached        []string                  `json:"attached"`
}

type historyMode int

const (
	historyPush historyMode = iota
	historyReplace
	historyKeep
)

type attachment struct {
	id         string
	channel    *transport.Channel
	dispatcher *Dispatcher
	teardown   func()
	ready      bool
}

// Host orchestrates the shell
type Host struct {
	cfg      config.Config
	registry *registry.Registry
	sidebar  *sidebar.Store
	session  *SessionGate
	history  *History
	watchdog *watchdog.Watchdog
	logger   *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// route is the location on display. It differs from the history entry
	// when back or forward lands on a redirected or unknown path.
	route       protocol.Route
	mounted     string
	moduleURL   string
	breadcrumbs []protocol.BreadcrumbItem
	busy        bool
	attachments map[string]*attachment
	observers   map[int]func(Snapshot)
	nextObs     int
	closed      bool
}

// NewHost creates a host positioned at "/". Call Start to perform the
// initial navigation.
func NewHost(ctx context.Context, cfg config.Config, reg *registry.Registry, kv kvstore.Store, clock timer.Clock, log *logger.Logger) *Host {
	log = logger.OrGlobal(log).With("component", "hub")
	hctx, cancel := context.WithCancel(context.Background())

	h := &Host{
		cfg:         cfg,
		registry:    reg,
		sidebar:     sidebar.New(ctx, kv, cfg.Storage.SidebarKey, log),
		session:     NewSessionGate(ctx, kv, cfg.Storage.SessionKey, cfg.Hub.LoginRoute, cfg.Hub.PublicRoutes, log),
		history:     NewHistory(protocol.Route{Path: "/"}),
		route:       protocol.Route{Path: "/"},
		logger:      log,
		ctx:         hctx,
		cancel:      cancel,
		attachments: make(map[string]*attachment),
		observers:   make(map[int]func(Snapshot)),
	}
	h.watchdog = watchdog.New(clock, watchdog.Options{
		ReadyTimeout:     cfg.Readiness.ReadyTimeout,
		MinSkeleton:      cfg.Readiness.MinSkeleton,
		OnTimeout:        h.readyTimedOut,
		OnSkeletonHidden: func(string) { h.publish() },
	}, log)
	return h
}

// Start performs the initial navigation to path, or to the home route when
// path is empty
func (h *Host) Start(ctx context.Context, path string) {
	if path == "" {
		path = h.cfg.Hub.HomeRoute
	}
	h.open(ctx, protocol.ParseRoute(path), historyReplace)
}

// Navigate moves the hub to path, adding a history entry
func (h *Host) Navigate(ctx context.Context, path string) {
	h.open(ctx, protocol.ParseRoute(path), historyPush)
}

// Back moves to the previous history entry. It reports false at the start
// of history.
func (h *Host) Back(ctx context.Context) bool {
	route, ok := h.history.Back()
	if ok {
		h.open(ctx, route, historyKeep)
	}
	return ok
}

// Forward moves to the next history entry
func (h *Host) Forward(ctx context.Context) bool {
	route, ok := h.history.Forward()
	if ok {
		h.open(ctx, route, historyKeep)
	}
	return ok
}

// Login signs user in and continues to redirect, or home when empty
func (h *Host) Login(ctx context.Context, user protocol.User, redirect string) error {
	if err := h.session.Login(ctx, user); err != nil {
		return err
	}
	if redirect == "" || h.session.IsPublic(redirect) {
		redirect = h.cfg.Hub.HomeRoute
	}
	h.open(ctx, protocol.ParseRoute(redirect), historyPush)
	return nil
}

// Logout ends the session and shows the login route
func (h *Host) Logout(ctx context.Context) {
	h.session.Logout(ctx)
	h.open(ctx, protocol.ParseRoute(h.cfg.Hub.LoginRoute), historyPush)
}

// ToggleCollapse flips the sidebar collapse state
func (h *Host) ToggleCollapse(ctx context.Context) protocol.SidebarState {
	st := h.sidebar.ToggleCollapse(ctx)
	h.publish()
	return st
}

// ToggleSection flips one sidebar section
func (h *Host) ToggleSection(ctx context.Context, sectionID string) protocol.SidebarState {
	st := h.sidebar.ToggleSection(ctx, sectionID)
	h.publish()
	return st
}

// Registry returns the module registry
func (h *Host) Registry() *registry.Registry {
	return h.registry
}

// Attach serves a module channel. The returned detach removes the module's
// handlers; a later Attach for the same module replaces this one.
func (h *Host) Attach(moduleID string, ch *transport.Channel) (detach func()) {
	if _, ok := h.registry.Module(moduleID); !ok {
		h.logger.Warn("Attaching module missing from registry", "module_id", moduleID)
	}

	att := &attachment{
		id:         moduleID,
		channel:    ch,
		dispatcher: NewDispatcher(ch, h.logger.With("module_id", moduleID)),
	}
	att.teardown = att.dispatcher.Init(h.dispatchConfig(att))

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		att.teardown()
		return func() {}
	}
	prev := h.attachments[moduleID]
	h.attachments[moduleID] = att
	h.mu.Unlock()

	if prev != nil {
		prev.dispatcher.Close()
		h.logger.Info("Module reattached", "module_id", moduleID)
	} else {
		h.logger.Info("Module attached", "module_id", moduleID)
	}
	h.publish()

	return func() {
		h.mu.Lock()
		if h.attachments[moduleID] == att {
			delete(h.attachments, moduleID)
		}
		h.mu.Unlock()
		att.teardown()
		h.logger.Info("Module detached", "module_id", moduleID)
		h.publish()
	}
}

// Snapshot returns the current shell state
func (h *Host) Snapshot() Snapshot {
	h.mu.Lock()
	route := h.route
	snap := Snapshot{
		Route:       route,
		Error:       errorCodeFromPath(route.Path),
		ModuleID:    h.mounted,
		ModuleURL:   h.moduleURL,
		Breadcrumbs: append([]protocol.BreadcrumbItem{}, h.breadcrumbs...),
		Attached:    make([]string, 0, len(h.attachments)),
	}
	busy := h.busy
	for id := range h.attachments {
		snap.Attached = append(snap.Attached, id)
	}
	h.mu.Unlock()

	sort.Strings(snap.Attached)
	snap.Loading = snap.ModuleID != "" && (h.watchdog.Loading() || busy)
	snap.SkeletonVisible = snap.ModuleID != "" && h.watchdog.SkeletonVisible()
	snap.Sidebar = h.sidebar.State()
	snap.User = h.session.User()
	snap.Active = h.registry.ActiveNav(route.Path)
	snap.CanBack = h.history.CanBack()
	snap.CanForward = h.history.CanForward()
	return snap
}

// Subscribe registers fn for every shell change and returns its cancel func
func (h *Host) Subscribe(fn func(Snapshot)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextObs
	h.nextObs++
	h.observers[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.observers, id)
		h.mu.Unlock()
	}
}

// Close stops the watchdog and removes every module's handlers
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	atts := make([]*attachment, 0, len(h.attachments))
	for _, att := range h.attachments {
		atts = append(atts, att)
	}
	h.attachments = make(map[string]*attachment)
	h.watchdog.Stop()
	h.mu.Unlock()

	for _, att := range atts {
		att.teardown()
	}
	h.cancel()
	h.logger.Info("Hub host closed", "detached", len(atts))
	return nil
}

// open moves the hub to route. The target module is mounted unless it is
// already mounted and ready, in which case it only receives ROUTE_CHANGE.
func (h *Host) open(ctx context.Context, route protocol.Route, mode historyMode) {
	if route.Path == "/" {
		route = protocol.ParseRoute(h.cfg.Hub.HomeRoute)
	}
	if redirect, ok := h.session.Allow(route.Path); !ok {
		h.logger.Debug("Route requires a session", "path", route.Path)
		route = protocol.ParseRoute(redirect)
	}

	var (
		mod      registry.Module
		found    bool
		expand   []string
		notify   *attachment
		readyNow bool
	)
	if !isShellRoute(route.Path, h.session) {
		mod, found = h.registry.ModuleForPath(route.Path)
		if !found {
			h.logger.Warn("No module serves path", "path", route.Path)
			route = protocol.ParseRoute(protocol.ErrorNotFound.Route())
		} else {
			expand = h.registry.DefaultExpandedSections(route.Path)
		}
	}
	h.record(route, mode)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.route = route
	switch {
	case !found:
		h.mounted = ""
		h.moduleURL = ""
		h.breadcrumbs = nil
		h.busy = false
		h.watchdog.Stop()

	case h.mounted == mod.ID && h.isReadyLocked(mod.ID):
		// READY is sent once per module process, so the watchdog guards
		// mounts only and in-module moves are not timed
		notify = h.attachments[mod.ID]

	default:
		h.mounted = mod.ID
		h.moduleURL, _ = h.registry.ResolveModuleURL(route.Path)
		h.breadcrumbs = nil
		h.busy = false
		h.watchdog.Start(route.Path)
		if h.isReadyLocked(mod.ID) {
			notify = h.attachments[mod.ID]
			readyNow = true
		}
		h.logger.Info("Mounting module", "module_id", mod.ID, "path", route.Path, "url", h.moduleURL)
	}
	h.mu.Unlock()

	if len(expand) > 0 {
		h.sidebar.ExpandSections(ctx, expand...)
	}
	if notify != nil {
		if err := notify.dispatcher.SendRouteChange(ctx, route); err != nil {
			h.logger.Warn("Failed to send route change", "module_id", notify.id, "error", err)
		}
	}
	if readyNow {
		h.watchdog.Ready()
	}
	h.publish()
}

func (h *Host) record(route protocol.Route, mode historyMode) {
	switch mode {
	case historyPush:
		h.history.Push(route)
	case historyReplace:
		h.history.Replace(route)
	}
	// historyKeep leaves the entry as it is, even when the view was
	// redirected away from it
}

func (h *Host) currentRoute() protocol.Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.route
}

func (h *Host) isReadyLocked(moduleID string) bool {
	att := h.attachments[moduleID]
	return att != nil && att.ready
}

// isShellRoute reports routes rendered by the hub itself: login and other
// public pages, and the error views
func isShellRoute(path string, session *SessionGate) bool {
	return registry.HasPathPrefix(path, ErrorRoutePrefix) || session.IsPublic(path)
}

func (h *Host) readyTimedOut(route string) {
	if h.currentRoute().Path != route {
		return
	}
	h.logger.Error("Module did not send READY in time", "path", route, "timeout", h.cfg.Readiness.ReadyTimeout)
	h.open(h.ctx, protocol.ParseRoute(protocol.ErrorInternal.Route()), historyPush)
}

func (h *Host) dispatchConfig(att *attachment) Config {
	return Config{
		OnNavigate: func(path string) {
			h.moduleNavigated(att, path)
		},
		OnBreadcrumbsChange: func(items []protocol.BreadcrumbItem) {
			h.mu.Lock()
			if h.mounted == att.id {
				h.breadcrumbs = append([]protocol.BreadcrumbItem{}, items...)
			}
			h.mu.Unlock()
			h.publish()
		},
		OnLoadingChange: func(loading bool) {
			h.mu.Lock()
			mounted := h.mounted == att.id
			if mounted {
				h.busy = loading
			}
			h.mu.Unlock()
			if mounted && !loading {
				h.watchdog.Ready()
			}
			h.publish()
		},
		OnReady: func(moduleID string) {
			if moduleID != "" && moduleID != att.id {
				h.logger.Warn("READY carries a different module id", "module_id", att.id, "reported", moduleID)
			}
			h.mu.Lock()
			att.ready = true
			h.mu.Unlock()
		},
		OnLogout: func() {
			h.Logout(h.ctx)
		},
		OnError: func(code protocol.ErrorCode) {
			h.logger.Warn("Module reported an error", "module_id", att.id, "code", int(code))
			h.open(h.ctx, protocol.ParseRoute(code.Route()), historyPush)
		},
		OnSidebarStateChange: func(state protocol.SidebarState) {
			h.sidebar.Replace(h.ctx, state)
			h.publish()
		},
		GetUser:         h.session.User,
		GetSidebarState: h.sidebar.State,
		GetCurrentRoute: h.currentRoute,
	}
}

// moduleNavigated handles NAVIGATE. A path inside the sending, mounted
// module only moves the hub location since the module is already there;
// anything else is a regular hub navigation.
func (h *Host) moduleNavigated(att *attachment, path string) {
	route := protocol.ParseRoute(path)

	h.mu.Lock()
	inPlace := h.mounted == att.id && h.registry.ModuleIDForPath(route.Path) == att.id
	h.mu.Unlock()

	if !inPlace {
		h.open(h.ctx, route, historyPush)
		return
	}
	if _, ok := h.session.Allow(route.Path); !ok {
		h.open(h.ctx, route, historyPush)
		return
	}
	h.history.Push(route)
	h.mu.Lock()
	h.route = route
	h.mu.Unlock()
	if expand := h.registry.DefaultExpandedSections(route.Path); len(expand) > 0 {
		h.sidebar.ExpandSections(h.ctx, expand...)
	}
	h.publish()
}

func (h *Host) publish() {
	h.mu.Lock()
	fns := make([]func(Snapshot), 0, len(h.observers))
	for i := 0; i < h.nextObs; i++ {
		if fn, ok := h.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := h.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// errorCodeFromPath maps an error route back to its code, 0 for other paths
func errorCodeFromPath(path string) protocol.ErrorCode {
	rest, ok := strings.CutPrefix(path, ErrorRoutePrefix+"/")
	if !ok {
		return 0
	}
	for _, code := range []protocol.ErrorCode{protocol.ErrorForbidden, protocol.ErrorNotFound, protocol.ErrorInternal} {
		if code.Route() == ErrorRoutePrefix+"/"+rest {
			return code
		}
	}
	return 0
}
