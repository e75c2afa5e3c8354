package hub

import (
	"context"
	"fmt"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/types"
)

// Config has one callback per module→hub message type. Nil callbacks are
// no-ops; nil accessors answer with the protocol defaults.
type Config struct {
	OnNavigate           func(path string)
	OnBreadcrumbsChange  func(items []protocol.BreadcrumbItem)
	OnLoadingChange      func(loading bool)
	OnReady              func(moduleID string)
	OnLogout             func()
	OnError              func(code protocol.ErrorCode)
	OnSidebarStateChange func(state protocol.SidebarState)

	// Accessors answer queries from hub state without calling the module
	GetUser         func() *protocol.User
	GetSidebarState func() protocol.SidebarState
	GetCurrentRoute func() protocol.Route
}

// Dispatcher owns the hub side subscriptions of one module channel
type Dispatcher struct {
	channel *transport.Channel
	subs    *transport.SubscriptionSet
	logger  *logger.Logger
}

// NewDispatcher creates a dispatcher with no live subscriptions
func NewDispatcher(ch *transport.Channel, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		channel: ch,
		subs:    transport.NewSubscriptionSet(),
		logger:  logger.OrGlobal(log).With("component", "hub_dispatch"),
	}
}

// Init installs a handler for every module→hub message type, replacing the
// subscriptions of any previous Init. The returned teardown cancels them.
func (d *Dispatcher) Init(cfg Config) (teardown func()) {
	return d.subs.Install(func() []*transport.Subscription {
		catalog := protocol.ModuleToHub()
		subs := make([]*transport.Subscription, 0, len(catalog))
		for _, typ := range catalog {
			h, err := handlerFor(typ, cfg)
			if err != nil {
				// unreachable while handlerFor covers the catalog
				d.logger.Error("Message type has no dispatch handler", "type", typ, "error", err)
				continue
			}
			subs = append(subs, d.channel.On(typ, h))
		}
		d.logger.Debug("Dispatch handlers installed", "count", len(subs))
		return subs
	})
}

// Live returns the number of installed subscriptions
func (d *Dispatcher) Live() int {
	return d.subs.Len()
}

// SendRouteChange tells the module to apply a hub route
func (d *Dispatcher) SendRouteChange(ctx context.Context, route protocol.Route) error {
	return d.channel.Emit(ctx, protocol.RouteChange, route)
}

// Close cancels the installed subscriptions
func (d *Dispatcher) Close() {
	d.subs.CancelAll()
}

func handlerFor(typ protocol.MessageType, cfg Config) (transport.Handler, error) {
	switch typ {
	case protocol.Navigate:
		return func(_ context.Context, msg transport.Message) (any, error) {
			var p protocol.NavigatePayload
			if err := msg.Decode(&p); err != nil {
				return nil, err
			}
			if p.Path == "" {
				return nil, types.NewError(types.ErrCodeInvalidArgument, "navigate without path")
			}
			if cfg.OnNavigate != nil {
				cfg.OnNavigate(p.Path)
			}
			return nil, nil
		}, nil

	case protocol.Ready:
		return func(_ context.Context, msg transport.Message) (any, error) {
			var p protocol.ReadyPayload
			if err := msg.Decode(&p); err != nil {
				return nil, err
			}
			if cfg.OnReady != nil {
				cfg.OnReady(p.ModuleID)
			}
			if cfg.OnLoadingChange != nil {
				cfg.OnLoadingChange(false)
			}
			return nil, nil
		}, nil

	case protocol.SetBreadcrumbs:
		return func(_ context.Context, msg transport.Message) (any, error) {
			var p protocol.SetBreadcrumbsPayload
			if err := msg.Decode(&p); err != nil {
				return nil, err
			}
			if cfg.OnBreadcrumbsChange != nil {
				cfg.OnBreadcrumbsChange(p.Items)
			}
			return nil, nil
		}, nil

	case protocol.SetLoading:
		return func(_ context.Context, msg transport.Message) (any, error) {
			var p protocol.SetLoadingPayload
			if err := msg.Decode(&p); err != nil {
				return nil, err
			}
			if cfg.OnLoadingChange != nil {
				cfg.OnLoadingChange(p.Loading)
			}
			return nil, nil
		}, nil

	case protocol.GetUser:
		return func(context.Context, transport.Message) (any, error) {
			resp := protocol.UserResponse{}
			if cfg.GetUser != nil {
				resp.User = cfg.GetUser()
			}
			return resp, nil
		}, nil

	case protocol.Logout:
		return func(context.Context, transport.Message) (any, error) {
			if cfg.OnLogout != nil {
				cfg.OnLogout()
			}
			return nil, nil
		}, nil

	case protocol.Error:
		return func(_ context.Context, msg transport.Message) (any, error) {
			var p protocol.ErrorPayload
			if err := msg.Decode(&p); err != nil {
				return nil, err
			}
			if !p.Code.Valid() {
				return nil, types.NewError(types.ErrCodeInvalidArgument, fmt.Sprintf("unsupported error code %d", p.Code))
			}
			if cfg.OnError != nil {
				cfg.OnError(p.Code)
			}
			return nil, nil
		}, nil

	case protocol.GetSidebarState:
		return func(context.Context, transport.Message) (any, error) {
			if cfg.GetSidebarState == nil {
				return protocol.DefaultSidebarState(), nil
			}
			return cfg.GetSidebarState().Clone(), nil
		}, nil

	case protocol.SetSidebarState:
		return func(_ context.Context, msg transport.Message) (any, error) {
			state := protocol.DefaultSidebarState()
			if err := msg.Decode(&state); err != nil {
				return nil, err
			}
			if cfg.OnSidebarStateChange != nil {
				cfg.OnSidebarStateChange(state.Clone())
			}
			return nil, nil
		}, nil

	case protocol.GetInitialRoute:
		return func(context.Context, transport.Message) (any, error) {
			if cfg.GetCurrentRoute == nil {
				return protocol.Route{Path: "/"}, nil
			}
			return cfg.GetCurrentRoute(), nil
		}, nil
	}
	return nil, types.NewError(types.ErrCodeNotFound, "no dispatch handler for "+typ.String())
}
