package cache

import (
	"context"
	"sync"
	"time"
)

// Stats reports cache effectiveness for the monitoring surface.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Entries int     `json:"entries"`
	HitRate float64 `json:"hit_rate"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Adaptive is a fingerprint-keyed TTL cache. Expiry is checked on read, so
// correctness never depends on the sweep; the sweep only bounds memory.
type Adaptive[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	hits    int64
	misses  int64
}

func New[V any]() *Adaptive[V] {
	return &Adaptive[V]{entries: make(map[string]entry[V])}
}

func (c *Adaptive[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().Before(e.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return e.value, true
	}

	c.mu.Lock()
	if ok {
		// Reads past expiry are misses and evict the stale entry.
		if stale, still := c.entries[key]; still && !time.Now().Before(stale.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.misses++
	c.mu.Unlock()

	var zero V
	return zero, false
}

func (c *Adaptive[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Adaptive[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Adaptive[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
		HitRate: rate,
	}
}

// StartSweep reclaims expired entries periodically until ctx is cancelled.
func (c *Adaptive[V]) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep(time.Now())
			}
		}
	}()
}

func (c *Adaptive[V]) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
