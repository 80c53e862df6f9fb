package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GetSetReset(t *testing.T) {
	s := NewService(DefaultServiceConfig())
	defer s.Close()

	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "reviews:list", []byte("payload"), 0))

	val, ok := s.Get(ctx, "reviews:list")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), val)

	require.NoError(t, s.Reset(ctx))
	_, ok = s.Get(ctx, "reviews:list")
	assert.False(t, ok)
}

func TestService_GetOrLoad_SingleFlight(t *testing.T) {
	s := NewService(DefaultServiceConfig())
	defer s.Close()

	ctx := context.Background()
	var loads atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) ([]byte, error) {
		loads.Add(1)
		<-release
		return []byte("loaded"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := s.GetOrLoad(ctx, "reviews:list", time.Minute, load)
			require.NoError(t, err)
			results[i] = value
		}(i)
	}

	// Let the goroutines pile up on the flight before releasing the loader.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, value := range results {
		assert.Equal(t, []byte("loaded"), value)
	}

	// The result is cached for subsequent calls.
	value, err := s.GetOrLoad(ctx, "reviews:list", time.Minute, func(context.Context) ([]byte, error) {
		t.Fatal("loader should not run on a cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("loaded"), value)
}

func TestService_GetOrLoad_Error(t *testing.T) {
	s := NewService(DefaultServiceConfig())
	defer s.Close()

	wantErr := assert.AnError
	_, err := s.GetOrLoad(context.Background(), "reviews:list", time.Minute, func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, s.Size())
}

func TestService_CleanupLoop(t *testing.T) {
	s := NewService(ServiceConfig{Capacity: 10, DefaultTTL: time.Minute, CleanupInterval: 10 * time.Millisecond})
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "short", []byte("x"), 5*time.Millisecond))

	assert.Eventually(t, func() bool {
		return s.Size() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestService_CloseIsIdempotentEnough(t *testing.T) {
	s := NewService(DefaultServiceConfig())
	s.Close()
	// Operations after close still work against the LRU; only cleanup stops.
	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), 0))
}
