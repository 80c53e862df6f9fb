package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hrygo/reviewflow/cache"
	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/credstore"
	"github.com/hrygo/reviewflow/internal/errors"
	"github.com/hrygo/reviewflow/internal/observability"
)

// Store is the single source of truth for the current session. It composes
// the remote auth client, the persisted credential store, and the cache
// coordinator, and is the only writer of the live Session value.
//
// Transition side effects are ordered: credentials are persisted before the
// status flips to authenticated, the cache reset runs before any navigation,
// and navigation is requested only after the transition is committed.
type Store struct {
	mu        sync.Mutex
	status    Status
	user      *client.User
	token     string
	lastError string
	hydrated  bool

	subscribers map[int]func(Snapshot)
	nextSubID   int

	auth        AuthClient
	creds       credstore.Store
	coordinator *cache.Coordinator
	nav         Navigator
	logger      *slog.Logger
}

// NewStore creates a session store in the anonymous, unhydrated state.
func NewStore(auth AuthClient, creds credstore.Store, coordinator *cache.Coordinator, nav Navigator, logger *slog.Logger) *Store {
	if nav == nil {
		nav = NopNavigator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		status:      StatusAnonymous,
		subscribers: make(map[int]func(Snapshot)),
		auth:        auth,
		creds:       creds,
		coordinator: coordinator,
		nav:         nav,
		logger:      logger,
	}
}

// Snapshot returns a consistent view of the session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Status:    s.status,
		User:      s.user,
		Token:     s.token,
		LastError: s.lastError,
		Hydrated:  s.hydrated,
	}
}

// Token implements client.TokenProvider.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe registers fn to run after every committed transition. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// identity returns the cache identity for the given user pointer.
func identity(user *client.User) cache.Identity {
	if user == nil {
		return cache.Anonymous
	}
	return cache.Identity{UserID: user.ID}
}

// Login exchanges credentials for a session. A second login or registration
// while one is pending is rejected immediately with a busy error.
func (s *Store) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "login", func(ctx context.Context) (*client.AuthResponse, error) {
		return s.auth.Login(ctx, email, password)
	})
}

// Register creates an account and starts a session with it.
func (s *Store) Register(ctx context.Context, email, password, name string) error {
	return s.authenticate(ctx, "register", func(ctx context.Context) (*client.AuthResponse, error) {
		return s.auth.Register(ctx, email, password, name)
	})
}

func (s *Store) authenticate(ctx context.Context, op string, call func(context.Context) (*client.AuthResponse, error)) error {
	s.mu.Lock()
	if s.status == StatusAuthenticating {
		s.mu.Unlock()
		return errors.Busy(op)
	}
	rc := observability.NewRequestContext(s.logger, op, "")
	ctx = observability.WithRequestContext(ctx, rc)
	previous := identity(s.user)
	// A failure leaves the session errored, unless the attempt started from a
	// live session: the previous identity and token are still intact both in
	// memory and in the credential store, so the session stays authenticated.
	failStatus := StatusErrored
	if s.status == StatusAuthenticated {
		failStatus = StatusAuthenticated
	}
	s.status = StatusAuthenticating
	s.lastError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	fail := func(err error) {
		s.mu.Lock()
		s.status = failStatus
		s.lastError = errors.MessageOf(err)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	}

	resp, err := call(ctx)
	if err != nil {
		rc.Warn("authentication failed",
			slog.String(observability.LogFieldErrorCode, string(errors.CodeOf(err, errors.CodeTransport))),
			slog.String("error", err.Error()))
		fail(err)
		return err
	}

	// Persist before the authenticated status becomes observable.
	if err := s.creds.Write(ctx, resp.Token, resp.User); err != nil {
		rc.Error("failed to persist credentials", err)
		fail(err)
		return err
	}

	// Cache reset must complete before navigation so no view renders data
	// fetched under the previous identity.
	s.coordinator.ResetOnIdentityChange(ctx, previous, identity(resp.User))

	s.mu.Lock()
	s.user = resp.User
	s.token = resp.Token
	s.status = StatusAuthenticated
	s.lastError = ""
	snap = s.snapshotLocked()
	s.mu.Unlock()

	rc.UserID = resp.User.ID
	rc.Info("session established",
		slog.String("role", string(resp.User.Role)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	s.notify(snap)
	s.nav.Navigate(RouteHome)
	return nil
}

// Logout tears the session down. It never calls the remote service and
// cannot fail; persistence and cache problems are logged and absorbed.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	previous := identity(s.user)
	s.user = nil
	s.token = ""
	s.status = StatusAnonymous
	s.lastError = ""
	s.mu.Unlock()

	if err := s.creds.Clear(ctx); err != nil {
		s.logger.Error("failed to clear persisted credentials", "error", err)
	}
	s.coordinator.ResetOnIdentityChange(ctx, previous, cache.Anonymous)

	s.notify(s.Snapshot())
	s.nav.Navigate(RouteLogin)
}

// Rehydrate reconstitutes the session from the credential store exactly once
// at startup. A well-formed snapshot is trusted without remote validation; a
// malformed one routes through the logout-shaped cleanup and no error escapes.
func (s *Store) Rehydrate(ctx context.Context) {
	creds, err := s.creds.Read(ctx)

	switch {
	case err != nil:
		s.logger.Warn("discarding malformed persisted session", "error", err)
		if clearErr := s.creds.Clear(ctx); clearErr != nil {
			s.logger.Error("failed to clear malformed credentials", "error", clearErr)
		}
		s.mu.Lock()
		s.user = nil
		s.token = ""
		s.status = StatusAnonymous
		s.hydrated = true
		s.mu.Unlock()

	case creds == nil:
		s.mu.Lock()
		s.status = StatusAnonymous
		s.hydrated = true
		s.mu.Unlock()

	default:
		s.mu.Lock()
		s.user = creds.User
		s.token = creds.Token
		s.status = StatusAuthenticated
		s.hydrated = true
		s.mu.Unlock()
		s.logger.Debug("session rehydrated", "user_id", creds.User.ID)
	}

	s.notify(s.Snapshot())
}
