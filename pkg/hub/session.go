package hub

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/types"
)

// SessionGate decides whether a hub route is reachable. Public routes are
// always reachable; every other route needs a signed-in user. The user is
// persisted so a restarted hub keeps its session.
type SessionGate struct {
	kv           kvstore.Store
	key          string
	loginRoute   string
	publicRoutes []string
	logger       *logger.Logger

	mu   sync.RWMutex
	user *protocol.User
}

// NewSessionGate restores the persisted session, if any. A nil kv keeps the
// session in memory.
func NewSessionGate(ctx context.Context, kv kvstore.Store, key, loginRoute string, publicRoutes []string, log *logger.Logger) *SessionGate {
	g := &SessionGate{
		kv:           kv,
		key:          key,
		loginRoute:   loginRoute,
		publicRoutes: append([]string(nil), publicRoutes...),
		logger:       logger.OrGlobal(log).With("component", "session"),
	}
	if kv == nil {
		return g
	}

	var user *protocol.User
	err := kvstore.GetJSON(ctx, kv, key, &user)
	switch {
	case err == nil:
		g.user = user
	case kvstore.IsNotFound(err):
	default:
		g.logger.Warn("Failed to restore session", "error", err)
	}
	return g
}

// User returns a copy of the signed-in user, or nil
func (g *SessionGate) User() *protocol.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// Authenticated reports whether a user is signed in
func (g *SessionGate) Authenticated() bool {
	return g.User() != nil
}

// IsPublic reports whether path is reachable without a session
func (g *SessionGate) IsPublic(path string) bool {
	for _, r := range g.publicRoutes {
		if registry.HasPathPrefix(path, strings.TrimSuffix(r, "/")) {
			return true
		}
	}
	return false
}

// Allow checks path against the session. When the path is not reachable it
// returns the login route carrying path as the redirect target.
func (g *SessionGate) Allow(path string) (redirect string, ok bool) {
	if g.IsPublic(path) || g.Authenticated() {
		return "", true
	}
	return g.loginRoute + "?redirect=" + url.QueryEscape(path), false
}

// Login signs user in and persists the session
func (g *SessionGate) Login(ctx context.Context, user protocol.User) error {
	if user.ID == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "user id is required")
	}
	g.mu.Lock()
	g.user = &user
	g.mu.Unlock()

	g.persist(ctx, &user)
	g.logger.Info("User signed in", "user_id", user.ID)
	return nil
}

// Logout clears the session
func (g *SessionGate) Logout(ctx context.Context) {
	g.mu.Lock()
	prev := g.user
	g.user = nil
	g.mu.Unlock()

	g.persist(ctx, nil)
	if prev != nil {
		g.logger.Info("User signed out", "user_id", prev.ID)
	}
}

func (g *SessionGate) persist(ctx context.Context, user *protocol.User) {
	if g.kv == nil {
		return
	}
	if err := kvstore.SetJSON(ctx, g.kv, g.key, user); err != nil {
		g.logger.Warn("Failed to persist session", "error", err)
	}
}
