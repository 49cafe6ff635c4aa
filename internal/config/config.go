// Package config loads sitereport settings from an optional YAML file and
// SITEREPORT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is read when present and no explicit path is given.
	DefaultConfigFile = "sitereport.yaml"

	EnvConfigFile = "SITEREPORT_CONFIG"
)

// Config is the root configuration.
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Cache         CacheConfig         `yaml:"cache"`
	Blob          BlobConfig          `yaml:"blob"`
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
}

// DispatchConfig tunes the assembly pipeline.
type DispatchConfig struct {
	// FetchConcurrency bounds parallel enrichment lookups inside modules.
	FetchConcurrency int `yaml:"fetch_concurrency"`
}

// Load reads path (or DefaultConfigFile when path is empty and the file
// exists), then applies defaults, environment overrides and validation. An
// explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigFile
	}

	loaded, err := load(path)
	switch {
	case err == nil:
		cfg = loaded
	case errors.Is(err, iofs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes and finalizes the result.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *Config) Merge(overlay *Config) {
	if overlay == nil {
		return
	}
	c.Source.Merge(&overlay.Source)
	c.Cache.Merge(&overlay.Cache)
	c.Blob.Merge(&overlay.Blob)
	c.Server.Merge(&overlay.Server)
	c.Log.Merge(&overlay.Log)
	c.Observability.Merge(&overlay.Observability)
	if overlay.Dispatch.FetchConcurrency != 0 {
		c.Dispatch.FetchConcurrency = overlay.Dispatch.FetchConcurrency
	}
}

func (c *Config) finalize() error {
	if c.Dispatch.FetchConcurrency == 0 {
		c.Dispatch.FetchConcurrency = 4
	}
	envInt("SITEREPORT_FETCH_CONCURRENCY", &c.Dispatch.FetchConcurrency)
	if c.Dispatch.FetchConcurrency < 1 {
		return fmt.Errorf("invalid dispatch.fetch_concurrency: %d", c.Dispatch.FetchConcurrency)
	}

	if err := c.Source.Finalize(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Cache.Finalize(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Blob.Finalize(); err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Log.Finalize(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Observability.Finalize(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	// #nosec G304 -- the config path is operator supplied.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", field)
	}
	return d, nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want one of %s)", field, value, strings.Join(allowed, ", "))
}
