// Package session owns the client's authenticated identity and its lifecycle.
package session

import (
	"context"

	"github.com/hrygo/reviewflow/client"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusAnonymous is the initial state with no identity.
	StatusAnonymous Status = "anonymous"
	// StatusAuthenticating is set while a login or registration is in flight.
	StatusAuthenticating Status = "authenticating"
	// StatusAuthenticated means user and token are both present.
	StatusAuthenticated Status = "authenticated"
	// StatusErrored records a failed attempt; it gates like anonymous and
	// returns to authenticating on the next attempt.
	StatusErrored Status = "errored"
)

// Route is a navigation target exposed to views.
type Route string

const (
	RouteHome  Route = "home"
	RouteLogin Route = "login"
)

// Navigator receives navigation requests from session transitions. Navigation
// is invoked strictly after persistence and cache reset have completed.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(Route)

// Navigate calls the function.
func (f NavigatorFunc) Navigate(route Route) { f(route) }

// NopNavigator ignores navigation requests.
var NopNavigator Navigator = NavigatorFunc(func(Route) {})

// AuthClient is the remote surface used for session transitions. Logout has
// no remote call and thus no method here.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Register(ctx context.Context, email, password, name string) (*client.AuthResponse, error)
}

// Snapshot is a consistent view of the session at one instant.
type Snapshot struct {
	Status    Status
	User      *client.User
	Token     string
	LastError string
	// Hydrated is false until the initial credential read has completed.
	// Guards render a neutral loading state while it is false.
	Hydrated bool
}

// IsAuthenticated reports whether the snapshot carries an identity.
func (s Snapshot) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil && s.Token != ""
}
