// Package cache provides a small in-process TTL cache for per-customer
// lookup maps (banned events, banned accounts, identities). Correctness of
// the pipeline never depends on the cache being fresh, only on it being
// bounded-stale, so entries simply expire after the configured TTL.
package cache

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic expiry tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock used outside tests.
var SystemClock Clock = systemClock{}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe map whose entries expire after a fixed
// duration. Expired entries are dropped lazily on access.
type TTL[V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock Clock
	data  map[string]entry[V]
}

func NewTTL[V any](ttl time.Duration, clock Clock) *TTL[V] {
	if clock == nil {
		clock = SystemClock
	}
	return &TTL[V]{
		ttl:   ttl,
		clock: clock,
		data:  make(map[string]entry[V]),
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.data, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Delete invalidates one entry, used after write-through updates so the
// next read refetches the authoritative copy.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
