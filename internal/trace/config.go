package trace

import (
	"fmt"
	"time"
)

// Config holds the trace store configuration.
type Config struct {
	// Enabled turns trace persistence on. When false the store is not
	// opened at all.
	Enabled bool `toml:"enabled"`

	// Path is the SQLite database file for the trace log.
	Path string `toml:"path"`

	// FlushThreshold is the number of buffered records that forces a
	// flush to the writer.
	FlushThreshold int `toml:"flush_threshold"`

	// FlushInterval is the maximum age of buffered records before they
	// are flushed regardless of count.
	FlushInterval time.Duration `toml:"flush_interval"`

	// QueueSize is the capacity of the batch queue between the loop and
	// the database writer.
	QueueSize int `toml:"queue_size"`
}

// DefaultConfig returns the default trace store configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		Path:           "framepace-trace.db",
		FlushThreshold: 64,
		FlushInterval:  time.Second,
		QueueSize:      16,
	}
}

func validateConfig(config Config) error {
	if config.Path == "" {
		return fmt.Errorf("trace path must not be empty")
	}
	if config.FlushThreshold <= 0 {
		return fmt.Errorf("flush threshold must be positive, got %d", config.FlushThreshold)
	}
	if config.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", config.FlushInterval)
	}
	if config.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", config.QueueSize)
	}
	return nil
}
