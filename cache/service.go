package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ServiceConfig configures the cache service.
type ServiceConfig struct {
	Capacity        int           // Maximum number of entries (default: 1000)
	DefaultTTL      time.Duration // Default TTL for entries (default: 5 minutes)
	CleanupInterval time.Duration // Interval for expired entry cleanup (default: 1 minute)
}

// DefaultServiceConfig returns default cache service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Capacity:        1000,
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Service implements QueryCache with LRU eviction and a singleflight loader.
type Service struct {
	lru   *LRUCache
	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupInterval time.Duration
}

// NewService creates a new cache service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		lru:             NewLRUCache(cfg.Capacity, cfg.DefaultTTL),
		ctx:             ctx,
		cancel:          cancel,
		cleanupInterval: cfg.CleanupInterval,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Get retrieves a value from cache.
func (s *Service) Get(_ context.Context, key string) ([]byte, bool) {
	return s.lru.Get(key)
}

// Set stores a value in cache.
func (s *Service) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.Set(key, value, ttl)
	return nil
}

// Invalidate invalidates cache entries matching the pattern.
func (s *Service) Invalidate(_ context.Context, pattern string) error {
	s.lru.Invalidate(pattern)
	return nil
}

// Reset drops every entry.
func (s *Service) Reset(_ context.Context) error {
	s.lru.Clear()
	return nil
}

// Loader fetches a value when the cache misses.
type Loader func(ctx context.Context) ([]byte, error)

// GetOrLoad returns the cached value for key, or loads it once even under
// concurrent callers and stores the result with the given ttl.
func (s *Service) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error) {
	if value, ok := s.lru.Get(key); ok {
		return value, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		// Recheck under the flight; another caller may have filled it.
		if value, ok := s.lru.Get(key); ok {
			return value, nil
		}
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.lru.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// InvalidateNamespace drops a whole read family, typically after a local
// write made it stale.
func (s *Service) InvalidateNamespace(namespace string) int {
	return s.lru.InvalidateNamespace(namespace)
}

// Size returns the number of cached entries.
func (s *Service) Size() int {
	return s.lru.Size()
}

// Stats returns the hit/miss counters and per-namespace sizes.
func (s *Service) Stats() Stats {
	return s.lru.Stats()
}

// Close stops the background cleanup goroutine.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.lru.CleanupExpired()
		}
	}
}
