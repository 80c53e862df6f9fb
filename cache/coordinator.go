package cache

import (
	"context"
	"log/slog"
)

// Identity names the session owner a cache entry was fetched under.
// The zero value is the anonymous identity.
type Identity struct {
	UserID string
}

// Anonymous is the identity of an unauthenticated session.
var Anonymous = Identity{}

// IsAnonymous reports whether the identity is the anonymous one.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// Coordinator keeps the shared query cache consistent with the current session
// identity. It is the only writer of cache resets; the session store invokes it
// on every transition that crosses an identity boundary, before any navigation.
type Coordinator struct {
	cache  QueryCache
	logger *slog.Logger
}

// NewCoordinator creates a coordinator over the given cache.
func NewCoordinator(cache QueryCache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cache: cache, logger: logger}
}

// ResetOnIdentityChange drops every cached entry when previous and next name
// different identities, so no data from a prior identity leaks into a new one.
// Returns whether a reset was issued.
func (c *Coordinator) ResetOnIdentityChange(ctx context.Context, previous, next Identity) bool {
	if previous == next {
		return false
	}
	if err := c.cache.Reset(ctx); err != nil {
		// Reset of the in-process cache cannot realistically fail, but a
		// coordinator over a remote cache can; entries must not survive.
		c.logger.Error("cache reset failed", "previous", previous.UserID, "next", next.UserID, "error", err)
	}
	c.logger.Debug("query cache reset on identity change",
		"previous", labelIdentity(previous), "next", labelIdentity(next))
	return true
}

func labelIdentity(i Identity) string {
	if i.IsAnonymous() {
		return "anonymous"
	}
	return i.UserID
}
