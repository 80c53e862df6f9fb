// Package credstore persists the session token and user record across runs.
package credstore

import (
	"context"

	"github.com/hrygo/reviewflow/client"
)

// Slot keys for the two durable values.
const (
	SlotToken = "token"
	SlotUser  = "user"
)

// Credentials is the persisted shadow of an authenticated session.
type Credentials struct {
	Token string
	User  *client.User
}

// Store is the durable two-slot credential store.
//
// Read fails soft: missing slots mean no session (nil, nil), and an
// unparseable user record returns nil with a MALFORMED_STATE error that
// callers must treat identically to "no session". Write sets both slots
// atomically; Clear removes both. No partial writes.
type Store interface {
	Read(ctx context.Context) (*Credentials, error)
	Write(ctx context.Context, token string, user *client.User) error
	Clear(ctx context.Context) error
	Close() error
}
