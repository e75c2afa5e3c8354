package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/protocol"
)

func newGate(kv kvstore.Store) *SessionGate {
	return NewSessionGate(context.Background(), kv, "framehub-session", "/login", []string{"/login", "/errors/"}, logger.Discard())
}

func TestSessionGateAllow(t *testing.T) {
	g := newGate(nil)

	tests := []struct {
		path     string
		ok       bool
		redirect string
	}{
		{path: "/login", ok: true},
		{path: "/errors/500", ok: true},
		{path: "/loginx", ok: false, redirect: "/login?redirect=%2Floginx"},
		{path: "/employees/list", ok: false, redirect: "/login?redirect=%2Femployees%2Flist"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			redirect, ok := g.Allow(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.redirect, redirect)
		})
	}

	require.NoError(t, g.Login(context.Background(), testUser))
	_, ok := g.Allow("/employees/list")
	assert.True(t, ok)
}

func TestSessionPersists(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	g := newGate(kv)
	require.NoError(t, g.Login(ctx, testUser))

	restored := newGate(kv)
	require.NotNil(t, restored.User())
	assert.Equal(t, testUser, *restored.User())

	restored.Logout(ctx)
	assert.False(t, newGate(kv).Authenticated())
}

func TestLoginRequiresID(t *testing.T) {
	g := newGate(nil)
	assert.Error(t, g.Login(context.Background(), protocol.User{Name: "nobody"}))
	assert.False(t, g.Authenticated())
}

func TestUserIsACopy(t *testing.T) {
	g := newGate(nil)
	require.NoError(t, g.Login(context.Background(), testUser))

	u := g.User()
	u.Name = "changed"
	assert.Equal(t, testUser.Name, g.User().Name)
}
