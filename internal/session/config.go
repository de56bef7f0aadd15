package session

import "fmt"

// Config defines configuration for a presentation session
type Config struct {
	// Disable counter emission even when the compositor supports it
	DisableSync bool `toml:"disable_sync"`

	// Initial surface dimensions
	Width  int32 `toml:"width"`
	Height int32 `toml:"height"`

	// Stop after this many submitted frames; zero runs until the
	// transport fails or the session is stopped
	MaxFrames uint64 `toml:"max_frames"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		Width:  500,
		Height: 500,
	}
}

// validateConfig validates session configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.Width <= 0 || config.Height <= 0 {
		return fmt.Errorf("surface dimensions must be positive, got %dx%d",
			config.Width, config.Height)
	}

	return nil
}
