// Package cache defines the byte-oriented key/value cache the reference-data
// decorator writes through. Backends live in the memory, sqlite and redis
// subpackages.
package cache

import (
	"context"
	"time"
)

// Driver names a cache backend.
type Driver string

const (
	DriverNone   Driver = "none"
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

// Cache stores opaque values under string keys. A zero ttl keeps the entry
// until the backend evicts it.
type Cache interface {
	// Get returns the value of key. ok is false on a miss or an expired entry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
