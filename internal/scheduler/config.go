package scheduler

import (
	"fmt"
	"time"

	"github.com/veldt/framepace/lib/ring"
)

// Config defines configuration for the frame scheduler
type Config struct {
	// Steady-state target frame rate in frames per second
	TargetRate float64 `toml:"target_frame_rate"`

	// How long to push the deadline out when a frame is deferred by
	// flow control
	DeferralDelay time.Duration `toml:"deferral_delay"`

	// Sliding window size for the frame-interval and render-duration
	// statistics
	StatsWindow int `toml:"stats_window"`
}

// DefaultConfig returns default scheduler configuration. The default
// target rate matches NTSC cadence.
func DefaultConfig() Config {
	return Config{
		TargetRate:    29.97,
		DeferralDelay: 2 * time.Millisecond,
		StatsWindow:   ring.DefaultCapacity,
	}
}

// validateConfig validates scheduler configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.TargetRate <= 0 {
		return fmt.Errorf("TargetRate must be positive, got %v", config.TargetRate)
	}

	if config.DeferralDelay <= 0 {
		return fmt.Errorf("DeferralDelay must be positive, got %v", config.DeferralDelay)
	}

	if config.StatsWindow <= 0 {
		return fmt.Errorf("StatsWindow must be positive, got %d", config.StatsWindow)
	}

	return nil
}
