package sim

import (
	"fmt"
	"time"
)

// Resize is one scripted resize the simulated compositor performs.
type Resize struct {
	// Delay after session start before the resize is issued
	After time.Duration `toml:"after"`

	Width  int32 `toml:"width"`
	Height int32 `toml:"height"`
}

// Config defines configuration for the simulated compositor
type Config struct {
	// Whether the compositor advertises extended synchronization
	ExtendedSync bool `toml:"extended_sync"`

	// Delay between a frame completing and the compositor sending the
	// drawn/timing acknowledgments
	AckLatency time.Duration `toml:"ack_latency"`

	// Interval between liveness probes; zero disables pings
	PingInterval time.Duration `toml:"ping_interval"`

	// Refresh interval reported in timing acknowledgments
	RefreshInterval time.Duration `toml:"refresh_interval"`

	// Buffered wire capacity between compositor and client
	WireCapacity int `toml:"wire_capacity"`

	// Scripted resizes
	Resizes []Resize `toml:"resizes"`
}

// DefaultConfig returns default simulator configuration resembling a
// 60Hz compositor that acknowledges frames within one refresh.
func DefaultConfig() Config {
	return Config{
		ExtendedSync:    true,
		AckLatency:      8 * time.Millisecond,
		PingInterval:    5 * time.Second,
		RefreshInterval: 16667 * time.Microsecond,
		WireCapacity:    256,
	}
}

// validateConfig validates simulator configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.AckLatency < 0 {
		return fmt.Errorf("AckLatency must not be negative, got %v", config.AckLatency)
	}

	if config.PingInterval < 0 {
		return fmt.Errorf("PingInterval must not be negative, got %v", config.PingInterval)
	}

	if config.RefreshInterval <= 0 {
		return fmt.Errorf("RefreshInterval must be positive, got %v", config.RefreshInterval)
	}

	if config.WireCapacity <= 0 {
		return fmt.Errorf("WireCapacity must be positive, got %d", config.WireCapacity)
	}

	for i, r := range config.Resizes {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("resize %d has non-positive dimensions %dx%d", i, r.Width, r.Height)
		}
	}

	return nil
}
