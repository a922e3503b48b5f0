// Package bot contains the notification dispatcher. This file implements a
// lightweight, in-memory, token-bucket throttle for chat commands with
// per-invoker buckets and opportunistic garbage collection. It bounds how
// often a single client can trigger register/unregister transactions.
//
// The limiter is process-local, which matches the deployment model: one bot
// process per virtual server.
package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucket holds a single rate limiter and the last time it was seen.
// Used to opportunistically evict idle entries.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// commandLimiter implements a per-invoker token-bucket throttle.
//
// Buckets are created on demand and stored in an internal map guarded by a
// mutex. Idle buckets are evicted after a TTL via opportunistic cleanup
// during lookups to keep memory usage bounded. Safe for concurrent use.
type commandLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket

	ttl      time.Duration
	lookups  uint64
}

// newCommandLimiter constructs a commandLimiter with the given tokens-per-
// second and burst size. A burst <= 0 is coerced to 1; rps <= 0 disables the
// limiter entirely (Allow always returns true).
func newCommandLimiter(rps float64, burst int) *commandLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &commandLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// Allow reports whether the invoker identified by key may run a command now.
func (cl *commandLimiter) Allow(key string) bool {
	if cl.rps <= 0 {
		return true
	}
	return cl.get(key).Allow()
}

// get returns (and updates) the limiter for key, creating it if absent.
// It also performs opportunistic GC of idle entries after ~5000 lookups,
// before touching the requested bucket so a stale entry for the same key is
// evicted rather than refreshed.
func (cl *commandLimiter) get(key string) *rate.Limiter {
	now := time.Now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.lookups++
	if cl.lookups >= 5000 {
		cl.lookups = 0
		for k, b := range cl.buckets {
			if now.Sub(b.lastSeen) > cl.ttl {
				delete(cl.buckets, k)
			}
		}
	}

	b, ok := cl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}
