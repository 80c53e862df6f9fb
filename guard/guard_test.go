package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/reviewflow/cache"
	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/credstore"
	"github.com/hrygo/reviewflow/session"
)

type recordingNavigator struct {
	mu     sync.Mutex
	routes []session.Route
}

func (n *recordingNavigator) Navigate(route session.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) Routes() []session.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]session.Route(nil), n.routes...)
}

func newSessionStore(creds *credstore.MockStore) *session.Store {
	auth := session.NewMockAuthClient()
	auth.Users["a@b.com"] = session.MockAccount{
		Password: "pw123456",
		User:     client.User{ID: "u1", Email: "a@b.com", Name: "Ann", Role: client.RoleCustomer},
	}
	coordinator := cache.NewCoordinator(cache.NewMockCache(), nil)
	return session.NewStore(auth, creds, coordinator, session.NopNavigator, nil)
}

func TestGuard_PendingBeforeHydration(t *testing.T) {
	store := newSessionStore(credstore.NewMockStore())
	nav := &recordingNavigator{}
	g := New(store, nav, nil)

	// Before rehydration no protected content and no redirect either.
	assert.Equal(t, DecisionPending, g.Check())
	assert.Empty(t, nav.Routes())
}

func TestGuard_RedirectWhenAnonymous(t *testing.T) {
	store := newSessionStore(credstore.NewMockStore())
	store.Rehydrate(context.Background())

	nav := &recordingNavigator{}
	g := New(store, nav, nil)

	assert.Equal(t, DecisionRedirect, g.Check())
	assert.Equal(t, []session.Route{session.RouteLogin}, nav.Routes())
}

func TestGuard_AllowWhenAuthenticated(t *testing.T) {
	creds := credstore.NewMockStore()
	creds.SeedRaw("tok-u1", `{"id":"u1","email":"a@b.com","name":"Ann","role":"CUSTOMER"}`)

	store := newSessionStore(creds)
	store.Rehydrate(context.Background())

	nav := &recordingNavigator{}
	g := New(store, nav, nil)

	assert.Equal(t, DecisionAllow, g.Check())
	assert.Empty(t, nav.Routes())
}

func TestGuard_RedirectAfterLogout(t *testing.T) {
	store := newSessionStore(credstore.NewMockStore())
	ctx := context.Background()
	store.Rehydrate(ctx)
	require.NoError(t, store.Login(ctx, "a@b.com", "pw123456"))

	g := New(store, &recordingNavigator{}, nil)
	require.Equal(t, DecisionAllow, g.Check())

	store.Logout(ctx)
	assert.Equal(t, DecisionRedirect, g.Check())
}

func TestGuard_RequireWaitsForHydration(t *testing.T) {
	creds := credstore.NewMockStore()
	creds.SeedRaw("tok-u1", `{"id":"u1","email":"a@b.com","name":"Ann","role":"CUSTOMER"}`)
	store := newSessionStore(creds)

	g := New(store, &recordingNavigator{}, nil)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- g.Require(ctx)
	}()

	// Hydrate after Require is already waiting.
	time.Sleep(20 * time.Millisecond)
	store.Rehydrate(context.Background())

	require.NoError(t, <-done)
}

func TestGuard_RequireUnauthenticated(t *testing.T) {
	store := newSessionStore(credstore.NewMockStore())
	store.Rehydrate(context.Background())

	nav := &recordingNavigator{}
	g := New(store, nav, nil)

	err := g.Require(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, []session.Route{session.RouteLogin}, nav.Routes())
}
