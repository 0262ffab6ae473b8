// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cache provides small string caches with TTL support, in memory or on Redis.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/partybooth/internal/metrics"
)

// Cache stores string values with expiration. Failures to reach the backing
// store are treated as misses.
type Cache interface {
	// Get retrieves a value. The bool is false when missing or expired.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores a value with the specified TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration)
	// Delete removes a value.
	Delete(ctx context.Context, key string)
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

func (c *counters) hit(name string) {
	c.hits.Add(1)
	metrics.RecordCacheLookup(name, "hit")
}

func (c *counters) miss(name string) {
	c.misses.Add(1)
	metrics.RecordCacheLookup(name, "miss")
}

func (c *counters) snapshot(size int) Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: size,
	}
}

type entry struct {
	value      string
	expiration time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// MemoryCache is an in-process Cache used when Redis is not configured.
type MemoryCache struct {
	name string
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	stats   counters

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryCache creates a memory cache. A positive cleanupInterval starts a
// janitor goroutine that removes expired entries until Close.
func NewMemoryCache(name string, cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		name:    name,
		now:     time.Now,
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()
	if !found || e.expired(c.now()) {
		c.stats.miss(c.name)
		return "", false
	}
	c.stats.hit(c.name)
	return e.value, true
}

// Set implements Cache. A non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiration = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	c.stats.sets.Add(1)
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stats implements Cache.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return c.stats.snapshot(n)
}

// deleteExpired removes expired entries and returns how many were dropped.
func (c *MemoryCache) deleteExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.evictions.Add(int64(count))
	return count
}

// Close stops the janitor. It is idempotent.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}
