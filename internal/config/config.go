package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/veldt/framepace/internal/scheduler"
	"github.com/veldt/framepace/internal/session"
	"github.com/veldt/framepace/internal/trace"
	"github.com/veldt/framepace/internal/transport/sim"
)

// Config represents the application configuration
type Config struct {
	Pacing     scheduler.Config `toml:"pacing"`
	Session    session.Config   `toml:"session"`
	Compositor sim.Config       `toml:"compositor"`
	Trace      trace.Config     `toml:"trace"`
	Logging    LoggingConfig    `toml:"logging"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pacing:     scheduler.DefaultConfig(),
		Session:    session.DefaultConfig(),
		Compositor: sim.DefaultConfig(),
		Trace:      trace.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// Parse TOML file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	return LoadFromFile(configPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Pacing validation
	if c.Pacing.TargetRate <= 0 {
		return fmt.Errorf("pacing target_frame_rate must be positive")
	}
	if c.Pacing.DeferralDelay <= 0 {
		return fmt.Errorf("pacing deferral_delay must be positive")
	}
	if c.Pacing.StatsWindow <= 0 {
		return fmt.Errorf("pacing stats_window must be positive")
	}

	// Session validation
	if c.Session.Width <= 0 || c.Session.Height <= 0 {
		return fmt.Errorf("session dimensions must be positive")
	}

	// Compositor validation
	if c.Compositor.RefreshInterval <= 0 {
		return fmt.Errorf("compositor refresh_interval must be positive")
	}
	if c.Compositor.WireCapacity <= 0 {
		return fmt.Errorf("compositor wire_capacity must be positive")
	}
	for i, r := range c.Compositor.Resizes {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("compositor resize %d has non-positive dimensions", i)
		}
	}

	// Trace validation
	if c.Trace.Enabled {
		if c.Trace.Path == "" {
			return fmt.Errorf("trace path must be specified when tracing is enabled")
		}
		if c.Trace.FlushThreshold <= 0 {
			return fmt.Errorf("trace flush_threshold must be positive")
		}
		if c.Trace.FlushInterval <= 0 {
			return fmt.Errorf("trace flush_interval must be positive")
		}
		if c.Trace.QueueSize <= 0 {
			return fmt.Errorf("trace queue_size must be positive")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}
