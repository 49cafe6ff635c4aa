// Package redis backs the reference-data cache with a shared Redis server so
// several report servers reuse one copy of the lookup tables.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"sitereport/internal/infra/cache"
)

const defaultPrefix = "sitereport:"

var _ cache.Cache = (*Cache)(nil)

// Config locates the server.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; it defaults to "sitereport:".
	Prefix string
}

// client is the subset of *goredis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Close() error
}

// Cache implements cache.Cache on Redis strings with native expiry.
type Cache struct {
	rdb    client
	prefix string
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis cache: missing address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newWithClient(rdb, cfg.Prefix), nil
}

func newWithClient(rdb client, prefix string) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{rdb: rdb, prefix: prefix}
}

// Get reads the prefixed key. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes the prefixed key; a non-positive ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the prefixed key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client.
func (c *Cache) Close() error { return c.rdb.Close() }
