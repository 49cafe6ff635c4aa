// Package memory implements an in-process cache with per-entry expiry.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"sitereport/internal/infra/cache"
)

var _ cache.Cache = (*Cache)(nil)

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Cache keeps entries in a map guarded by a mutex. Expired entries are dropped
// lazily on read and whenever MaxEntries is exceeded.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of live entries. When a write would exceed
// the bound, expired entries are purged first and then the entry closest to
// expiry is evicted.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{entries: map[string]entry{}, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the value. Expired entries are dropped on read.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return bytes.Clone(e.value), true, nil
}

// Set stores a copy of value, evicting an entry first when the cache is full.
// A non-positive ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	e := entry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[key] = e
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close is a no-op.
func (c *Cache) Close() error { return nil }

// evict makes room for one entry. Callers hold mu.
func (c *Cache) evict(now time.Time) {
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	var victim string
	var victimExpiry time.Time
	found := false
	for key, e := range c.entries {
		if !found || before(e.expires, key, victimExpiry, victim) {
			victim, victimExpiry, found = key, e.expires, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

// before orders entries by expiry, entries without one last, then by key.
func before(a time.Time, aKey string, b time.Time, bKey string) bool {
	switch {
	case a.Equal(b):
		return aKey < bKey
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	}
	return a.Before(b)
}
