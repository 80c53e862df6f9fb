package mockserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RatePolicy bounds how fast one client may hit the API.
type RatePolicy struct {
	PerSecond int
	Burst     int
}

// DefaultRatePolicy is generous enough for interactive CLI use and tests
// while still catching tight retry loops.
func DefaultRatePolicy() RatePolicy {
	return RatePolicy{PerSecond: 50, Burst: 100}
}

// staleAfter is how long a client entry may sit idle before it is pruned.
const staleAfter = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per client key (the remote IP) and
// prunes buckets that have gone quiet so long-running servers do not
// accumulate one entry per client ever seen.
type RateLimiter struct {
	policy RatePolicy

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a limiter enforcing the given policy.
func NewRateLimiter(policy RatePolicy) *RateLimiter {
	if policy.PerSecond <= 0 {
		policy = DefaultRatePolicy()
	}
	if policy.Burst < policy.PerSecond {
		policy.Burst = policy.PerSecond
	}
	return &RateLimiter{
		policy:  policy,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether a request from key fits in its bucket.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		rl.pruneLocked(now)
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.policy.PerSecond), rl.policy.Burst),
		}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

// pruneLocked drops entries idle beyond staleAfter. Runs on new-client
// admission, which bounds the map by the set of recently active clients.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > staleAfter {
			delete(rl.clients, key)
		}
	}
}
