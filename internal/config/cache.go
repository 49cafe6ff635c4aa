package config

import (
	"errors"
	"time"

	"sitereport/internal/infra/cache"
	"sitereport/internal/infra/cache/redis"
)

// CacheConfig selects the reference-data cache.
type CacheConfig struct {
	Driver     string `yaml:"driver"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// Finalize applies defaults, environment overrides and validation.
func (c *CacheConfig) Finalize() error {
	c.loadEnv()
	if c.Driver == "" {
		c.Driver = string(cache.DriverNone)
	}
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 4096
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CacheConfig) Merge(overlay *CacheConfig) {
	mergeString(&c.Driver, overlay.Driver)
	mergeString(&c.TTL, overlay.TTL)
	mergeInt(&c.MaxEntries, overlay.MaxEntries)
	mergeString(&c.SQLitePath, overlay.SQLitePath)
	mergeString(&c.RedisAddr, overlay.RedisAddr)
	mergeString(&c.RedisPassword, overlay.RedisPassword)
	mergeInt(&c.RedisDB, overlay.RedisDB)
	mergeString(&c.RedisPrefix, overlay.RedisPrefix)
}

func (c *CacheConfig) loadEnv() {
	envString("SITEREPORT_CACHE_DRIVER", &c.Driver)
	envString("SITEREPORT_CACHE_TTL", &c.TTL)
	envInt("SITEREPORT_CACHE_MAX_ENTRIES", &c.MaxEntries)
	envString("SITEREPORT_CACHE_SQLITE_PATH", &c.SQLitePath)
	envString("SITEREPORT_REDIS_ADDR", &c.RedisAddr)
	envString("SITEREPORT_REDIS_PASSWORD", &c.RedisPassword)
	envInt("SITEREPORT_REDIS_DB", &c.RedisDB)
	envString("SITEREPORT_REDIS_PREFIX", &c.RedisPrefix)
}

func (c *CacheConfig) validate() error {
	if err := oneOf("driver", c.Driver,
		string(cache.DriverNone), string(cache.DriverMemory), string(cache.DriverSQLite), string(cache.DriverRedis),
	); err != nil {
		return err
	}
	if _, err := parseDuration("ttl", c.TTL); err != nil {
		return err
	}
	if c.MaxEntries < 0 {
		return errors.New("max_entries must not be negative")
	}
	if c.Kind() == cache.DriverRedis && c.RedisAddr == "" {
		return errors.New("redis driver requires redis_addr")
	}
	return nil
}

// Kind returns Driver as a cache.Driver.
func (c *CacheConfig) Kind() cache.Driver { return cache.Driver(c.Driver) }

// TTLDuration returns TTL as a time.Duration.
func (c *CacheConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// Redis returns the settings of the redis driver.
func (c *CacheConfig) Redis() redis.Config {
	return redis.Config{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Prefix:   c.RedisPrefix,
	}
}
