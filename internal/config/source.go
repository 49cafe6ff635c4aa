package config

import (
	"errors"
	"time"

	"sitereport/internal/infra/source/httpapi"
	"sitereport/internal/infra/source/postgres"
)

// Source drivers.
const (
	SourceMemory   = "memory"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// SourceConfig selects where site data is read from.
type SourceConfig struct {
	Driver string `yaml:"driver"`
	// Fixture is the JSON fixture read by the memory driver.
	Fixture string `yaml:"fixture"`

	BaseURL          string `yaml:"base_url"`
	MaxIDSetBytes    int    `yaml:"max_id_set_bytes"`
	Timeout          string `yaml:"timeout"`
	ChunkConcurrency int    `yaml:"chunk_concurrency"`

	DSN          string `yaml:"dsn"`
	Schema       string `yaml:"schema"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Finalize applies defaults, environment overrides and validation.
func (c *SourceConfig) Finalize() error {
	c.loadEnv()
	if c.Driver == "" {
		switch {
		case c.Fixture != "":
			c.Driver = SourceMemory
		case c.BaseURL != "":
			c.Driver = SourceHTTP
		default:
			c.Driver = SourcePostgres
		}
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxIDSetBytes == 0 {
		c.MaxIDSetBytes = httpapi.DefaultMaxIDSetBytes
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SourceConfig) Merge(overlay *SourceConfig) {
	mergeString(&c.Driver, overlay.Driver)
	mergeString(&c.Fixture, overlay.Fixture)
	mergeString(&c.BaseURL, overlay.BaseURL)
	mergeInt(&c.MaxIDSetBytes, overlay.MaxIDSetBytes)
	mergeString(&c.Timeout, overlay.Timeout)
	mergeInt(&c.ChunkConcurrency, overlay.ChunkConcurrency)
	mergeString(&c.DSN, overlay.DSN)
	mergeString(&c.Schema, overlay.Schema)
	mergeInt(&c.MaxOpenConns, overlay.MaxOpenConns)
}

func (c *SourceConfig) loadEnv() {
	envString("SITEREPORT_SOURCE_DRIVER", &c.Driver)
	envString("SITEREPORT_FIXTURE", &c.Fixture)
	envString("SITEREPORT_API_URL", &c.BaseURL)
	envInt("SITEREPORT_API_MAX_ID_SET_BYTES", &c.MaxIDSetBytes)
	envString("SITEREPORT_API_TIMEOUT", &c.Timeout)
	envInt("SITEREPORT_API_CHUNK_CONCURRENCY", &c.ChunkConcurrency)
	envString("SITEREPORT_DATABASE_URL", &c.DSN)
	envString("SITEREPORT_DATABASE_SCHEMA", &c.Schema)
	envInt("SITEREPORT_DATABASE_MAX_OPEN_CONNS", &c.MaxOpenConns)
}

func (c *SourceConfig) validate() error {
	if err := oneOf("driver", c.Driver, SourceMemory, SourceHTTP, SourcePostgres); err != nil {
		return err
	}
	if _, err := parseDuration("timeout", c.Timeout); err != nil {
		return err
	}
	switch c.Driver {
	case SourceMemory:
		if c.Fixture == "" {
			return errors.New("memory driver requires fixture")
		}
	case SourceHTTP:
		if c.BaseURL == "" {
			return errors.New("http driver requires base_url")
		}
	}
	if c.MaxIDSetBytes < 16 {
		return errors.New("max_id_set_bytes must be at least 16")
	}
	return nil
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *SourceConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// HTTP returns the settings of the http driver.
func (c *SourceConfig) HTTP() httpapi.Config {
	return httpapi.Config{
		BaseURL:          c.BaseURL,
		MaxIDSetBytes:    c.MaxIDSetBytes,
		Timeout:          c.TimeoutDuration(),
		ChunkConcurrency: c.ChunkConcurrency,
	}
}

// Postgres returns the settings of the postgres driver.
func (c *SourceConfig) Postgres() postgres.Config {
	return postgres.Config{DSN: c.DSN, Schema: c.Schema, MaxOpenConns: c.MaxOpenConns}
}
