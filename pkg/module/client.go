// Package module is the module side of the hub boundary: a typed client for
// the module to hub message catalog and a runtime that keeps a module's
// router, user and sidebar in step with the hub.
//
// Every client operation is safe to call when the module runs standalone.
// Requests then resolve immediately to their documented default.
package module

import (
	"context"
	"sync"
	"time"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/types"
)

// Client exposes the hub message catalog over a transport channel
type Client struct {
	ch      *transport.Channel
	timeout time.Duration
	logger  *logger.Logger

	mu        sync.Mutex
	readySent bool
}

// NewClient creates a client on ch. Requests are abandoned after timeout;
// zero leaves the deadline to the caller's context.
func NewClient(ch *transport.Channel, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		ch:      ch,
		timeout: timeout,
		logger:  logger.OrGlobal(log).With("component", "module_client"),
	}
}

// Embedded reports whether a hub is on the other end
func (c *Client) Embedded() bool {
	return c.ch.Embedded()
}

// Channel returns the underlying transport channel
func (c *Client) Channel() *transport.Channel {
	return c.ch
}

// Navigate asks the hub to navigate to a hub path
func (c *Client) Navigate(ctx context.Context, path string) error {
	return c.send(ctx, protocol.Navigate, protocol.NavigatePayload{Path: path}, nil)
}

// NotifyNavigate tells the hub about a navigation the module already
// performed. It does not wait for the hub.
func (c *Client) NotifyNavigate(ctx context.Context, hubPath string) error {
	return c.ch.Emit(ctx, protocol.Navigate, protocol.NavigatePayload{Path: hubPath})
}

// SetBreadcrumbs replaces the hub breadcrumb trail
func (c *Client) SetBreadcrumbs(ctx context.Context, items []protocol.BreadcrumbItem) error {
	if items == nil {
		items = []protocol.BreadcrumbItem{}
	}
	return c.send(ctx, protocol.SetBreadcrumbs, protocol.SetBreadcrumbsPayload{Items: items}, nil)
}

// SetLoading reports the module's busy state
func (c *Client) SetLoading(ctx context.Context, loading bool) error {
	return c.send(ctx, protocol.SetLoading, protocol.SetLoadingPayload{Loading: loading}, nil)
}

// GetUser returns the signed-in user, nil when there is none or the
// module runs standalone
func (c *Client) GetUser(ctx context.Context) (*protocol.User, error) {
	var resp protocol.UserResponse
	if err := c.send(ctx, protocol.GetUser, nil, &resp); err != nil {
		return nil, c.fallback(protocol.GetUser, err)
	}
	return resp.User, nil
}

// NotifyReady announces that the module has rendered. Only the first call
// reaches the hub; later calls are logged and ignored.
func (c *Client) NotifyReady(ctx context.Context, moduleID string) error {
	c.mu.Lock()
	if c.readySent {
		c.mu.Unlock()
		c.logger.Warn("Module already announced ready", "module_id", moduleID)
		return nil
	}
	c.readySent = true
	c.mu.Unlock()

	return c.send(ctx, protocol.Ready, protocol.ReadyPayload{ModuleID: moduleID}, nil)
}

// Logout signs the user out of the hub
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, protocol.Logout, nil, nil)
}

// ReportError sends the hub to the error page for code
func (c *Client) ReportError(ctx context.Context, code protocol.ErrorCode) error {
	if !code.Valid() {
		return types.NewError(types.ErrCodeInvalidArgument, "unsupported error code")
	}
	return c.send(ctx, protocol.Error, protocol.ErrorPayload{Code: code}, nil)
}

// GetSidebarState returns the hub's sidebar state, the default state when
// standalone
func (c *Client) GetSidebarState(ctx context.Context) (protocol.SidebarState, error) {
	state := protocol.DefaultSidebarState()
	if err := c.send(ctx, protocol.GetSidebarState, nil, &state); err != nil {
		return protocol.DefaultSidebarState(), c.fallback(protocol.GetSidebarState, err)
	}
	if state.ExpandedSections == nil {
		state.ExpandedSections = []string{}
	}
	return state, nil
}

// SetSidebarState replicates a full sidebar state to the hub
func (c *Client) SetSidebarState(ctx context.Context, state protocol.SidebarState) error {
	return c.send(ctx, protocol.SetSidebarState, state.Clone(), nil)
}

// GetInitialRoute returns the hub location the module was opened at,
// "/" when standalone
func (c *Client) GetInitialRoute(ctx context.Context) (protocol.Route, error) {
	var route protocol.Route
	if err := c.send(ctx, protocol.GetInitialRoute, nil, &route); err != nil {
		return protocol.Route{Path: "/"}, c.fallback(protocol.GetInitialRoute, err)
	}
	if route.Path == "" {
		route.Path = "/"
	}
	return route, nil
}

// OnRouteChange registers fn for hub route changes. The route path is in the
// hub's namespace. Standalone, the returned subscription is inert.
func (c *Client) OnRouteChange(fn func(protocol.Route)) *transport.Subscription {
	if !c.Embedded() {
		return transport.Inert(protocol.RouteChange)
	}
	return c.ch.On(protocol.RouteChange, func(_ context.Context, msg transport.Message) (any, error) {
		var route protocol.Route
		if err := msg.Decode(&route); err != nil {
			return nil, err
		}
		fn(route)
		return nil, nil
	})
}

func (c *Client) send(ctx context.Context, typ protocol.MessageType, payload, out any) error {
	if !c.Embedded() {
		return nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.ch.Send(ctx, typ, payload, out)
}

// fallback turns a missing hub handler into the query's default answer
func (c *Client) fallback(typ protocol.MessageType, err error) error {
	if types.IsErrCode(err, types.ErrCodeNotFound) {
		c.logger.Debug("Hub does not answer query, using default", "type", typ)
		return nil
	}
	return err
}
