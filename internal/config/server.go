package config

import (
	"errors"
	"time"
)

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// ExportQueue bounds pending export jobs.
	ExportQueue int `yaml:"export_queue"`
}

// Finalize applies defaults, environment overrides and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	mergeString(&c.Addr, overlay.Addr)
	mergeString(&c.ReadTimeout, overlay.ReadTimeout)
	mergeString(&c.WriteTimeout, overlay.WriteTimeout)
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	mergeInt(&c.ExportQueue, overlay.ExportQueue)
}

func (c *ServerConfig) loadDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "1m"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.ExportQueue == 0 {
		c.ExportQueue = 32
	}
}

func (c *ServerConfig) loadEnv() {
	envString("SITEREPORT_SERVER_ADDR", &c.Addr)
	envString("SITEREPORT_SERVER_READ_TIMEOUT", &c.ReadTimeout)
	envString("SITEREPORT_SERVER_WRITE_TIMEOUT", &c.WriteTimeout)
	envString("SITEREPORT_SERVER_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	envInt("SITEREPORT_EXPORT_QUEUE", &c.ExportQueue)
}

func (c *ServerConfig) validate() error {
	if _, err := parseDuration("read_timeout", c.ReadTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("write_timeout", c.WriteTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("shutdown_timeout", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.ExportQueue < 1 {
		return errors.New("export_queue must be positive")
	}
	return nil
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	return d
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}
