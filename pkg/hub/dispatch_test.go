package hub

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/transport/memory"
	"github.com/billm/framehub/pkg/types"
)

// TestHandlerForCoversModuleToHubCatalog tests that every module to hub type has a handler
func TestHandlerForCoversModuleToHubCatalog(t *testing.T) {
	for _, typ := range protocol.ModuleToHub() {
		h, err := handlerFor(typ, Config{})
		require.NoError(t, err, typ.String())
		assert.NotNil(t, h, typ.String())
	}
	for _, typ := range protocol.HubToModule() {
		_, err := handlerFor(typ, Config{})
		assert.Error(t, err, typ.String())
	}
}

// TestReinitDoesNotDuplicateDispatch tests repeated Init calls
func TestReinitDoesNotDuplicateDispatch(t *testing.T) {
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	defer closer()
	d := NewDispatcher(hubEnd, logger.Discard())

	var calls [4]atomic.Int32
	var teardowns []func()
	for i := range calls {
		n := i
		teardowns = append(teardowns, d.Init(Config{
			OnNavigate: func(string) { calls[n].Add(1) },
		}))
	}
	assert.Equal(t, len(protocol.ModuleToHub()), d.Live())

	// tearing down a superseded set leaves the live one alone
	teardowns[0]()
	assert.Equal(t, len(protocol.ModuleToHub()), d.Live())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, moduleEnd.Send(ctx, protocol.Navigate, protocol.NavigatePayload{Path: "/payroll/run"}, nil))

	assert.Equal(t, int32(0), calls[0].Load())
	assert.Equal(t, int32(0), calls[1].Load())
	assert.Equal(t, int32(0), calls[2].Load())
	assert.Equal(t, int32(1), calls[3].Load())

	teardowns[3]()
	assert.Equal(t, 0, d.Live())
	err := moduleEnd.Send(ctx, protocol.Navigate, protocol.NavigatePayload{Path: "/payroll/run"}, nil)
	assert.True(t, types.IsErrCode(err, types.ErrCodeNotFound))
}

// TestQueriesAnswerFromAccessors tests the query handlers
func TestQueriesAnswerFromAccessors(t *testing.T) {
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	defer closer()
	d := NewDispatcher(hubEnd, logger.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d.Init(Config{})
	var user protocol.UserResponse
	require.NoError(t, moduleEnd.Send(ctx, protocol.GetUser, nil, &user))
	assert.Nil(t, user.User)

	var route protocol.Route
	require.NoError(t, moduleEnd.Send(ctx, protocol.GetInitialRoute, nil, &route))
	assert.Equal(t, "/", route.Path)

	d.Init(Config{
		GetUser:         func() *protocol.User { return &testUser },
		GetSidebarState: func() protocol.SidebarState { return protocol.SidebarState{Collapsed: true, ExpandedSections: []string{"hr"}} },
		GetCurrentRoute: func() protocol.Route {
			return protocol.Route{Path: "/employees/list", Query: map[string]string{"page": "2"}}
		},
	})

	require.NoError(t, moduleEnd.Send(ctx, protocol.GetUser, nil, &user))
	require.NotNil(t, user.User)
	assert.Equal(t, testUser, *user.User)

	var state protocol.SidebarState
	require.NoError(t, moduleEnd.Send(ctx, protocol.GetSidebarState, nil, &state))
	assert.True(t, state.Equal(protocol.SidebarState{Collapsed: true, ExpandedSections: []string{"hr"}}))

	require.NoError(t, moduleEnd.Send(ctx, protocol.GetInitialRoute, nil, &route))
	assert.Equal(t, "/employees/list", route.Path)
	assert.Equal(t, "2", route.Query["page"])
}

// TestReadyActsAsLoadingFalse tests READY and SET_LOADING
func TestReadyActsAsLoadingFalse(t *testing.T) {
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	defer closer()
	d := NewDispatcher(hubEnd, logger.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var loading []bool
	var readyFrom string
	d.Init(Config{
		OnLoadingChange: func(l bool) { loading = append(loading, l) },
		OnReady:         func(id string) { readyFrom = id },
	})

	require.NoError(t, moduleEnd.Send(ctx, protocol.SetLoading, protocol.SetLoadingPayload{Loading: true}, nil))
	require.NoError(t, moduleEnd.Send(ctx, protocol.Ready, protocol.ReadyPayload{ModuleID: "benefits"}, nil))

	assert.Equal(t, []bool{true, false}, loading)
	assert.Equal(t, "benefits", readyFrom)
}

// TestInvalidPayloadsFailTheRequest tests malformed payloads
func TestInvalidPayloadsFailTheRequest(t *testing.T) {
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	defer closer()
	d := NewDispatcher(hubEnd, logger.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var codes []protocol.ErrorCode
	d.Init(Config{OnError: func(c protocol.ErrorCode) { codes = append(codes, c) }})

	err := moduleEnd.Send(ctx, protocol.Error, protocol.ErrorPayload{Code: 418}, nil)
	assert.True(t, types.IsErrCode(err, types.ErrCodeHandlerFailed))

	err = moduleEnd.Send(ctx, protocol.Navigate, protocol.NavigatePayload{}, nil)
	assert.True(t, types.IsErrCode(err, types.ErrCodeHandlerFailed))

	require.NoError(t, moduleEnd.Send(ctx, protocol.Error, protocol.ErrorPayload{Code: protocol.ErrorForbidden}, nil))
	assert.Equal(t, []protocol.ErrorCode{protocol.ErrorForbidden}, codes)
}

// TestSendRouteChange tests emitting ROUTE_CHANGE
func TestSendRouteChange(t *testing.T) {
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	defer closer()
	d := NewDispatcher(hubEnd, logger.Discard())

	got := make(chan protocol.Route, 1)
	moduleEnd.On(protocol.RouteChange, func(_ context.Context, msg transport.Message) (any, error) {
		var r protocol.Route
		_ = msg.Decode(&r)
		got <- r
		return nil, nil
	})

	require.NoError(t, d.SendRouteChange(context.Background(), protocol.Route{Path: "/employees/org"}))
	select {
	case r := <-got:
		assert.Equal(t, "/employees/org", r.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("route change not delivered")
	}
}
