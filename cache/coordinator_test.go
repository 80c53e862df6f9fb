package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_ResetOnIdentityChange(t *testing.T) {
	ctx := context.Background()

	t.Run("AnonymousToAuthenticated", func(t *testing.T) {
		mock := NewMockCache()
		coord := NewCoordinator(mock, nil)
		require.NoError(t, mock.Set(ctx, "reviews:list", []byte("anon data"), 0))

		reset := coord.ResetOnIdentityChange(ctx, Anonymous, Identity{UserID: "u1"})
		assert.True(t, reset)
		assert.Equal(t, 1, mock.Resets)
		assert.Equal(t, 0, mock.Size())
	})

	t.Run("AuthenticatedToAnonymous", func(t *testing.T) {
		mock := NewMockCache()
		coord := NewCoordinator(mock, nil)

		reset := coord.ResetOnIdentityChange(ctx, Identity{UserID: "u1"}, Anonymous)
		assert.True(t, reset)
		assert.Equal(t, 1, mock.Resets)
	})

	t.Run("DifferentAuthenticatedUsers", func(t *testing.T) {
		mock := NewMockCache()
		coord := NewCoordinator(mock, nil)

		reset := coord.ResetOnIdentityChange(ctx, Identity{UserID: "u1"}, Identity{UserID: "u2"})
		assert.True(t, reset)
		assert.Equal(t, 1, mock.Resets)
	})

	t.Run("SameIdentityNoReset", func(t *testing.T) {
		mock := NewMockCache()
		coord := NewCoordinator(mock, nil)
		require.NoError(t, mock.Set(ctx, "reviews:list", []byte("data"), 0))

		reset := coord.ResetOnIdentityChange(ctx, Identity{UserID: "u1"}, Identity{UserID: "u1"})
		assert.False(t, reset)
		assert.Equal(t, 0, mock.Resets)
		assert.Equal(t, 1, mock.Size())
	})
}

func TestIdentity_IsAnonymous(t *testing.T) {
	assert.True(t, Anonymous.IsAnonymous())
	assert.False(t, Identity{UserID: "u1"}.IsAnonymous())
}
