package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/veldt/framepace/internal/transport/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Pacing defaults
	if cfg.Pacing.TargetRate != 29.97 {
		t.Errorf("expected target_frame_rate 29.97, got %v", cfg.Pacing.TargetRate)
	}
	if cfg.Pacing.DeferralDelay != 2*time.Millisecond {
		t.Errorf("expected deferral_delay 2ms, got %v", cfg.Pacing.DeferralDelay)
	}

	// Session defaults
	if cfg.Session.Width != 500 || cfg.Session.Height != 500 {
		t.Errorf("expected 500x500 surface, got %dx%d", cfg.Session.Width, cfg.Session.Height)
	}

	// Compositor defaults
	if !cfg.Compositor.ExtendedSync {
		t.Error("expected extended sync enabled by default")
	}
	if cfg.Compositor.RefreshInterval != 16667*time.Microsecond {
		t.Errorf("expected refresh_interval 16.667ms, got %v", cfg.Compositor.RefreshInterval)
	}

	// Trace defaults
	if cfg.Trace.Enabled {
		t.Error("expected tracing disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[pacing]
target_frame_rate = 60.0
deferral_delay = "1ms"

[session]
width = 1280
height = 720
max_frames = 100

[compositor]
ack_latency = "4ms"

[[compositor.resizes]]
after = "500ms"
width = 1920
height = 1080

[trace]
enabled = true
path = "run.db"

[logging]
level = "debug"
format = "json"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Check overridden values
	if cfg.Pacing.TargetRate != 60.0 {
		t.Errorf("expected target_frame_rate 60, got %v", cfg.Pacing.TargetRate)
	}
	if cfg.Pacing.DeferralDelay != time.Millisecond {
		t.Errorf("expected deferral_delay 1ms, got %v", cfg.Pacing.DeferralDelay)
	}
	if cfg.Session.Width != 1280 || cfg.Session.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Session.Width, cfg.Session.Height)
	}
	if cfg.Session.MaxFrames != 100 {
		t.Errorf("expected max_frames 100, got %d", cfg.Session.MaxFrames)
	}
	if len(cfg.Compositor.Resizes) != 1 || cfg.Compositor.Resizes[0].Width != 1920 {
		t.Errorf("expected one 1920-wide scripted resize, got %+v", cfg.Compositor.Resizes)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Path != "run.db" {
		t.Errorf("expected tracing to run.db, got %+v", cfg.Trace)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json logging, got %s", cfg.Logging.Format)
	}

	// Defaults survive for fields the file does not set
	if cfg.Pacing.StatsWindow != DefaultConfig().Pacing.StatsWindow {
		t.Errorf("expected default stats_window, got %d", cfg.Pacing.StatsWindow)
	}
	if cfg.Compositor.PingInterval != 5*time.Second {
		t.Errorf("expected default ping_interval, got %v", cfg.Compositor.PingInterval)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate, got %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pacing.TargetRate != 29.97 {
		t.Errorf("expected default target rate, got %v", cfg.Pacing.TargetRate)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target rate", func(c *Config) { c.Pacing.TargetRate = 0 }},
		{"negative deferral delay", func(c *Config) { c.Pacing.DeferralDelay = -time.Millisecond }},
		{"zero width", func(c *Config) { c.Session.Width = 0 }},
		{"zero refresh interval", func(c *Config) { c.Compositor.RefreshInterval = 0 }},
		{"bad resize", func(c *Config) { c.Compositor.Resizes = []sim.Resize{{After: time.Second}} }},
		{"trace without path", func(c *Config) { c.Trace.Enabled = true; c.Trace.Path = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
