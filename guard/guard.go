// Package guard gates identity-requiring views on the session status.
package guard

import (
	"context"
	"log/slog"

	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/reviewflow/session"
)

// Decision is the outcome of a gate check.
type Decision string

const (
	// DecisionAllow renders the protected view.
	DecisionAllow Decision = "allow"
	// DecisionPending renders a neutral loading indicator; the initial
	// rehydration read has not completed and protected content must not
	// flash even momentarily.
	DecisionPending Decision = "pending"
	// DecisionRedirect sends the viewer to the login surface.
	DecisionRedirect Decision = "redirect"
)

// ErrUnauthenticated is returned by Require when the session carries no identity.
var ErrUnauthenticated = pkgerrors.New("authentication required")

// SessionSource is the part of the session store the guard consumes.
type SessionSource interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Guard redirects unauthenticated viewers away from protected views.
type Guard struct {
	sessions SessionSource
	nav      session.Navigator
	logger   *slog.Logger
}

// New creates a guard over the given session source.
func New(sessions SessionSource, nav session.Navigator, logger *slog.Logger) *Guard {
	if nav == nil {
		nav = session.NopNavigator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{sessions: sessions, nav: nav, logger: logger}
}

// Check decides whether a protected view may render right now. A redirect
// decision also notifies the navigator.
func (g *Guard) Check() Decision {
	snap := g.sessions.Snapshot()
	if !snap.Hydrated {
		return DecisionPending
	}
	if snap.IsAuthenticated() {
		return DecisionAllow
	}
	g.logger.Debug("unauthenticated access to protected view", "status", string(snap.Status))
	g.nav.Navigate(session.RouteLogin)
	return DecisionRedirect
}

// Require blocks until the session is hydrated, then returns nil when an
// identity is present or ErrUnauthenticated (after redirecting) otherwise.
func (g *Guard) Require(ctx context.Context) error {
	hydrated := make(chan struct{}, 1)
	unsubscribe := g.sessions.Subscribe(func(snap session.Snapshot) {
		if snap.Hydrated {
			select {
			case hydrated <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	for {
		snap := g.sessions.Snapshot()
		if snap.Hydrated {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hydrated:
		}
	}

	if g.sessions.Snapshot().IsAuthenticated() {
		return nil
	}
	g.nav.Navigate(session.RouteLogin)
	return ErrUnauthenticated
}
