package cache

import (
	"strings"
	"sync"
	"time"
)

// LRUCache is a TTL-bounded LRU over query results. Keys are namespaced by
// their first segment ("reviews:list", "review:r1:detail"), so an entire read
// family can be dropped when its backing data changes without touching the
// rest of the cache.
type LRUCache struct {
	capacity   int
	defaultTTL time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	// Intrusive recency list; head is most recently used, tail is the
	// eviction candidate.
	head, tail *cacheEntry
	// Entry counts per namespace, kept for Stats and namespace invalidation.
	namespaces map[string]int
	hits       uint64
	misses     uint64
}

type cacheEntry struct {
	key        string
	namespace  string
	value      []byte
	expiresAt  time.Time
	prev, next *cacheEntry
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Size       int
	Hits       uint64
	Misses     uint64
	Namespaces map[string]int
}

// NewLRUCache creates an empty cache.
func NewLRUCache(capacity int, defaultTTL time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &LRUCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*cacheEntry),
		namespaces: make(map[string]int),
	}
}

// namespaceOf returns the key segment before the first colon; a key without
// a colon is its own namespace.
func namespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Get retrieves a live value and marks it recently used.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		c.misses++
		return nil, false
	}

	c.touch(e)
	c.hits++
	return e.value, true
}

// Set stores a value, evicting from the cold end when full. A non-positive
// ttl takes the default.
func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
		c.touch(e)
		return
	}

	for len(c.entries) >= c.capacity && c.tail != nil {
		c.remove(c.tail)
	}

	e := &cacheEntry{
		key:       key,
		namespace: namespaceOf(key),
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.entries[key] = e
	c.namespaces[e.namespace]++
	c.pushFront(e)
}

// Invalidate removes entries matching the pattern and reports how many were
// dropped. A trailing * matches by prefix ("review:r1:*"); a bare namespace
// can be dropped with "<namespace>:*".
func (c *LRUCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.HasSuffix(pattern, "*") {
		if e, ok := c.entries[pattern]; ok {
			c.remove(e)
			return 1
		}
		return 0
	}

	prefix := strings.TrimSuffix(pattern, "*")
	count := 0
	for _, e := range c.entries {
		if strings.HasPrefix(e.key, prefix) {
			c.remove(e)
			count++
		}
	}
	return count
}

// InvalidateNamespace drops every entry in the namespace and reports how many
// were dropped.
func (c *LRUCache) InvalidateNamespace(namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.namespaces[namespace] == 0 {
		return 0
	}
	count := 0
	for _, e := range c.entries {
		if e.namespace == namespace {
			c.remove(e)
			count++
		}
	}
	return count
}

// Size returns the number of live entries.
func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a copy of the cache counters.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	namespaces := make(map[string]int, len(c.namespaces))
	for ns, n := range c.namespaces {
		namespaces[ns] = n
	}
	return Stats{
		Size:       len(c.entries),
		Hits:       c.hits,
		Misses:     c.misses,
		Namespaces: namespaces,
	}
}

// Clear removes all entries. Counters survive the clear.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.namespaces = make(map[string]int)
	c.head, c.tail = nil, nil
}

// CleanupExpired removes expired entries and reports how many were dropped.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*cacheEntry
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			stale = append(stale, e)
		}
	}
	for _, e := range stale {
		c.remove(e)
	}
	return len(stale)
}

// List maintenance. All of these require the lock.

func (c *LRUCache) pushFront(e *cacheEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRUCache) unlink(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *LRUCache) touch(e *cacheEntry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *LRUCache) remove(e *cacheEntry) {
	c.unlink(e)
	delete(c.entries, e.key)
	c.namespaces[e.namespace]--
	if c.namespaces[e.namespace] <= 0 {
		delete(c.namespaces, e.namespace)
	}
}
