package session

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
	"github.com/hrygo/reviewflow/internal/errors"
)

type recordingNavigator struct {
	mu         sync.Mutex
	routes     []Route
	onNavigate func(Route)
}

func (n *recordingNavigator) Navigate(route Route) {
	n.mu.Lock()
	n.routes = append(n.routes, route)
	fn := n.onNavigate
	n.mu.Unlock()
	if fn != nil {
		fn(route)
	}
}

func (n *recordingNavigator) Routes() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

type fixture struct {
	auth  *MockAuthClient
	creds *credstore.MockStore
	cache *cache.MockCache
	nav   *recordingNavigator
	store *Store
}

func newFixture() *fixture {
	auth := NewMockAuthClient()
	auth.Users["a@b.com"] = MockAccount{
		Password: "pw123456",
		User:     client.User{ID: "u1", Email: "a@b.com", Name: "Ann", Role: client.RoleCustomer},
	}
	creds := credstore.NewMockStore()
	mockCache := cache.NewMockCache()
	nav := &recordingNavigator{}
	store := NewStore(auth, creds, cache.NewCoordinator(mockCache, nil), nav, nil)
	return &fixture{auth: auth, creds: creds, cache: mockCache, nav: nav, store: store}
}

func TestStore_LoginSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// At navigation time persistence and cache reset must already be done
	// and the authenticated status must be observable.
	f.nav.onNavigate = func(route Route) {
		assert.Equal(t, RouteHome, route)
		assert.Equal(t, 1, f.creds.Writes)
		assert.Equal(t, 1, f.cache.Resets)
		assert.Equal(t, StatusAuthenticated, f.store.Snapshot().Status)
	}

	require.NoError(t, f.store.Login(ctx, "a@b.com", "pw123456"))

	snap := f.store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, "tok-u1", snap.Token)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, []Route{RouteHome}, f.nav.Routes())
	assert.Equal(t, "tok-u1", f.store.Token())
}

func TestStore_LoginInvalidCredentials(t *testing.T) {
	f := newFixture()

	err := f.store.Login(context.Background(), "a@b.com", "wrongpass")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidCredentials))

	snap := f.store.Snapshot()
	assert.Equal(t, StatusErrored, snap.Status)
	assert.False(t, snap.IsAuthenticated())
	assert.Equal(t, "invalid credentials", snap.LastError)

	// No persistence, no cache reset, no navigation.
	assert.Equal(t, 0, f.creds.Writes)
	assert.True(t, f.creds.Empty())
	assert.Equal(t, 0, f.cache.Resets)
	assert.Empty(t, f.nav.Routes())
}

func TestStore_LoginBusyRejection(t *testing.T) {
	f := newFixture()
	f.auth.Gate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.store.Login(context.Background(), "a@b.com", "pw123456")
	}()

	require.Eventually(t, func() bool {
		return f.store.Snapshot().Status == StatusAuthenticating
	}, time.Second, 5*time.Millisecond)

	err := f.store.Login(context.Background(), "a@b.com", "pw123456")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBusy))

	err = f.store.Register(context.Background(), "new@x.com", "pw", "New")
	assert.True(t, errors.IsCode(err, errors.CodeBusy))

	close(f.auth.Gate)
	require.NoError(t, <-done)
	assert.Equal(t, StatusAuthenticated, f.store.Snapshot().Status)
	assert.Equal(t, 1, f.auth.LoginCalls)
}

func TestStore_Logout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "a@b.com", "pw123456"))

	f.nav.onNavigate = func(route Route) {
		if route != RouteLogin {
			return
		}
		// Cache reset precedes the logout navigation.
		assert.Equal(t, 2, f.cache.Resets)
	}

	f.store.Logout(ctx)

	snap := f.store.Snapshot()
	assert.Equal(t, StatusAnonymous, snap.Status)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
	assert.True(t, f.creds.Empty())
	assert.Equal(t, 1, f.creds.Clears)
	assert.Equal(t, []Route{RouteHome, RouteLogin}, f.nav.Routes())
	assert.Equal(t, "", f.store.Token())
}

func TestStore_LoginAfterLogoutSequence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Login(ctx, "a@b.com", "pw123456"))
		f.store.Logout(ctx)
	}

	// After every logout both persisted slots are absent and status is anonymous.
	assert.True(t, f.creds.Empty())
	assert.Equal(t, StatusAnonymous, f.store.Snapshot().Status)
}

func TestStore_RegisterSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.store.Register(ctx, "new@x.com", "pw123456", "Ann"))

	snap := f.store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "Ann", snap.User.Name)
	assert.Equal(t, client.RoleCustomer, snap.User.Role)
	assert.Equal(t, 1, f.creds.Writes)

	persisted, err := f.creds.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.NotEmpty(t, persisted.Token)
	assert.Equal(t, "Ann", persisted.User.Name)
}

func TestStore_RegisterConflict(t *testing.T) {
	f := newFixture()

	err := f.store.Register(context.Background(), "a@b.com", "pw123456", "Dup")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeEmailConflict))

	snap := f.store.Snapshot()
	assert.Equal(t, StatusErrored, snap.Status)
	assert.Equal(t, "email already exists", snap.LastError)
	assert.True(t, f.creds.Empty())
}

func TestStore_FailedReloginKeepsLiveSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "a@b.com", "pw123456"))

	err := f.store.Login(ctx, "a@b.com", "wrongpass")
	require.Error(t, err)

	// The previous session is still valid: it stays authenticated, keeps
	// serving its token, and its persisted credentials are untouched.
	snap := f.store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, "tok-u1", f.store.Token())
	assert.Equal(t, "invalid credentials", snap.LastError)
	assert.False(t, f.creds.Empty())
	assert.Equal(t, 1, f.creds.Writes)
}

func TestStore_ErroredRecoversOnRetry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = f.store.Login(ctx, "a@b.com", "wrongpass")
	require.Equal(t, StatusErrored, f.store.Snapshot().Status)

	require.NoError(t, f.store.Login(ctx, "a@b.com", "pw123456"))
	snap := f.store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Empty(t, snap.LastError)
}

func TestStore_Rehydrate(t *testing.T) {
	t.Run("EmptyStore", func(t *testing.T) {
		f := newFixture()
		f.store.Rehydrate(context.Background())

		snap := f.store.Snapshot()
		assert.Equal(t, StatusAnonymous, snap.Status)
		assert.True(t, snap.Hydrated)
	})

	t.Run("ValidSnapshotTrustedWithoutRemoteCall", func(t *testing.T) {
		f := newFixture()
		f.creds.SeedRaw("tok-u1", `{"id":"u1","email":"a@b.com","name":"Ann","role":"CUSTOMER"}`)

		f.store.Rehydrate(context.Background())

		snap := f.store.Snapshot()
		assert.True(t, snap.IsAuthenticated())
		assert.Equal(t, "tok-u1", snap.Token)
		assert.Equal(t, "Ann", snap.User.Name)
		assert.True(t, snap.Hydrated)
		assert.Equal(t, 0, f.auth.LoginCalls)
		// Reconstitution has no side effects.
		assert.Equal(t, 0, f.cache.Resets)
		assert.Empty(t, f.nav.Routes())
	})

	t.Run("MalformedSnapshotClearsAndFallsBackToAnonymous", func(t *testing.T) {
		f := newFixture()
		f.creds.SeedRaw("tok-u1", "{not json")

		f.store.Rehydrate(context.Background())

		snap := f.store.Snapshot()
		assert.Equal(t, StatusAnonymous, snap.Status)
		assert.True(t, snap.Hydrated)
		assert.True(t, f.creds.Empty())
		assert.Equal(t, 1, f.creds.Clears)
	})
}

func TestStore_Subscribe(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []Status
	unsubscribe := f.store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap.Status)
		mu.Unlock()
	})

	require.NoError(t, f.store.Login(ctx, "a@b.com", "pw123456"))

	mu.Lock()
	assert.Equal(t, []Status{StatusAuthenticating, StatusAuthenticated}, seen)
	mu.Unlock()

	unsubscribe()
	f.store.Logout(ctx)

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}
