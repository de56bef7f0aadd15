package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veldt/framepace/internal/config"
	"github.com/veldt/framepace/internal/session"
	"github.com/veldt/framepace/internal/trace"
	"github.com/veldt/framepace/internal/transport/sim"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file (TOML)")
	frameRate := flag.Float64("frame-rate", 0, "Override target frame rate (fps)")
	maxFrames := flag.Uint64("max-frames", 0, "Stop after this many frames (0 runs until interrupted)")
	noSync := flag.Bool("no-sync", false, "Disable synchronized frame pacing")
	tracePath := flag.String("trace", "", "Write a trace database to this path")
	renderCost := flag.Duration("render-cost", 2*time.Millisecond, "Simulated draw time per frame")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "config_file", *configFile)
		os.Exit(1)
	}

	// Apply flag overrides
	if *frameRate > 0 {
		cfg.Pacing.TargetRate = *frameRate
	}
	if *maxFrames > 0 {
		cfg.Session.MaxFrames = *maxFrames
	}
	if *noSync {
		cfg.Session.DisableSync = true
	}
	if *tracePath != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.Path = *tracePath
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting framepace",
		"target_rate", cfg.Pacing.TargetRate,
		"size", [2]int32{cfg.Session.Width, cfg.Session.Height},
		"max_frames", cfg.Session.MaxFrames,
		"sync_disabled", cfg.Session.DisableSync)

	// Open the trace store if enabled
	var recorder session.Recorder
	var store *trace.Store
	if cfg.Trace.Enabled {
		store, err = trace.Open(cfg.Trace, trace.SessionInfo{
			TargetRate:   cfg.Pacing.TargetRate,
			Synchronized: cfg.Compositor.ExtendedSync && !cfg.Session.DisableSync,
		}, logger)
		if err != nil {
			logger.Error("failed to open trace store", "error", err, "path", cfg.Trace.Path)
			os.Exit(1)
		}
		recorder = store
	}

	// Start the simulated compositor
	tr, err := sim.New(cfg.Compositor, logger)
	if err != nil {
		logger.Error("failed to start compositor", "error", err)
		os.Exit(1)
	}

	// Build the session around the demo scene
	scene := newSceneRenderer(*renderCost, logger)
	sess, err := session.New(cfg.Session, cfg.Pacing, tr, scene, scene, nil, recorder, logger)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	// Stop the loop on interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutting down", "signal", sig.String())
		sess.Stop()
	}()

	runErr := sess.Run()

	// Teardown in reverse acquisition order
	if err := tr.Close(); err != nil {
		logger.Warn("compositor close failed", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("trace store close failed", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("session failed", "error", runErr)
		os.Exit(1)
	}

	stats := sess.Scheduler().Stats()
	rate, ok := stats.MeasuredRate()
	logger.Info("session complete",
		"frames", sess.Scheduler().FrameNumber(),
		"measured_rate", rate,
		"rate_known", ok)
}

// buildLogger constructs the process logger from the logging config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
