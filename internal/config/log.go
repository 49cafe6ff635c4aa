package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log modes.
const (
	LogDevelopment = "development"
	LogProduction  = "production"
)

// LogConfig selects the zap configuration.
type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// Finalize applies defaults, environment overrides and validation.
func (c *LogConfig) Finalize() error {
	envString("SITEREPORT_LOG_MODE", &c.Mode)
	envString("SITEREPORT_LOG_LEVEL", &c.Level)
	c.Mode = normalizeMode(c.Mode)
	if c.Level == "" {
		c.Level = "info"
	}
	if err := oneOf("mode", c.Mode, LogDevelopment, LogProduction); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *LogConfig) Merge(overlay *LogConfig) {
	mergeString(&c.Mode, overlay.Mode)
	mergeString(&c.Level, overlay.Level)
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "dev", LogDevelopment:
		return LogDevelopment
	case "prod", LogProduction:
		return LogProduction
	default:
		return mode
	}
}

// Build constructs the zap logger. Production mode logs JSON to stderr.
func (c *LogConfig) Build() (*zap.Logger, error) {
	var cfg zap.Config
	switch normalizeMode(c.Mode) {
	case LogProduction:
		cfg = zap.NewProductionConfig()
	case LogDevelopment:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid mode %q", c.Mode)
	}
	level := zapcore.InfoLevel
	if c.Level != "" {
		parsed, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid level: %w", err)
		}
		level = parsed
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
