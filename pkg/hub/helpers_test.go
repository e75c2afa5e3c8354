package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/timer"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/transport/memory"
)

var testUser = protocol.User{ID: "u-1", Name: "Ada Lovelace", Email: "ada@example.com"}

type testHub struct {
	host  *Host
	clock *timer.Fake
	kv    *kvstore.Memory
}

func newTestHub(t *testing.T, signedIn bool) *testHub {
	t.Helper()
	ctx := context.Background()
	th := &testHub{
		clock: timer.NewFake(time.Unix(0, 0)),
		kv:    kvstore.NewMemory(),
	}
	th.host = NewHost(ctx, *config.Default(), registry.Default(), th.kv, th.clock, logger.Discard())
	if signedIn {
		require.NoError(t, th.host.session.Login(ctx, testUser))
	}
	t.Cleanup(func() { _ = th.host.Close() })
	return th
}

// fakeModule is the module end of an in-memory connection to the host
type fakeModule struct {
	id     string
	ch     *transport.Channel
	routes chan protocol.Route
	detach func()
	closer func()
}

func (th *testHub) attach(t *testing.T, moduleID string) *fakeModule {
	t.Helper()
	hubEnd, moduleEnd, closer := memory.Pipe(logger.Discard())
	m := &fakeModule{
		id:     moduleID,
		ch:     moduleEnd,
		routes: make(chan protocol.Route, 16),
		closer: closer,
	}
	moduleEnd.On(protocol.RouteChange, func(_ context.Context, msg transport.Message) (any, error) {
		var r protocol.Route
		if err := msg.Decode(&r); err != nil {
			return nil, err
		}
		m.routes <- r
		return nil, nil
	})
	m.detach = th.host.Attach(moduleID, hubEnd)
	t.Cleanup(func() {
		m.detach()
		closer()
	})
	return m
}

func (m *fakeModule) send(t *testing.T, typ protocol.MessageType, payload, out any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.ch.Send(ctx, typ, payload, out))
}

func (m *fakeModule) ready(t *testing.T) {
	t.Helper()
	m.send(t, protocol.Ready, protocol.ReadyPayload{ModuleID: m.id}, nil)
}

func (m *fakeModule) nextRoute(t *testing.T) protocol.Route {
	t.Helper()
	select {
	case r := <-m.routes:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("module %s received no route change", m.id)
		return protocol.Route{}
	}
}

func (m *fakeModule) noRoute(t *testing.T) {
	t.Helper()
	select {
	case r := <-m.routes:
		t.Fatalf("module %s unexpectedly received route change %s", m.id, r.Path)
	case <-time.After(50 * time.Millisecond):
	}
}
