// Package cache provides a constructor-injected TTL map with a periodic sweeper.
package cache

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Entry is a cached value with its fetch and expiry times.
type Entry[T any] struct {
	Data      T
	FetchedAt time.Time
	ExpiresAt time.Time
}

// TTL is a keyed cache whose entries expire after a fixed duration.
// Expired entries are invisible to Get; Sweep removes them.
type TTL[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	ttl     time.Duration
	clock   Clock
}

// NewTTL creates a cache. A nil clock uses SystemClock.
func NewTTL[T any](ttl time.Duration, clock Clock) *TTL[T] {
	if clock == nil {
		clock = SystemClock
	}
	return &TTL[T]{
		entries: make(map[string]Entry[T]),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the live entry for key.
func (c *TTL[T]) Get(key string) (Entry[T], bool) {
	now := c.clock.Now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !now.Before(e.ExpiresAt) {
		return Entry[T]{}, false
	}
	return e, true
}

// Set stores data under key, stamped with the current time.
func (c *TTL[T]) Set(key string, data T) Entry[T] {
	now := c.clock.Now()
	e := Entry[T]{Data: data, FetchedAt: now, ExpiresAt: now.Add(c.ttl)}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e
}

// Invalidate drops one key.
func (c *TTL[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every key.
func (c *TTL[T]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[T])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *TTL[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (c *TTL[T]) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (c *TTL[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
