package trace

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/framepace/internal/counter"
	"github.com/veldt/framepace/internal/scheduler"
	"github.com/veldt/framepace/internal/session"
)

// ==============================================================================
// Test Helpers
// ==============================================================================

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Path = filepath.Join(t.TempDir(), "trace.db")
	return cfg
}

func openTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := Open(cfg, SessionInfo{TargetRate: 29.97, Synchronized: true}, createTestLogger())
	require.NoError(t, err)
	return s
}

// countRows reopens the database read-only and counts rows in a table.
func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := openDB(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// ==============================================================================
// Tests
// ==============================================================================

func TestOpen_AppliesMigrationsAndRegistersSession(t *testing.T) {
	cfg := testConfig(t)
	s := openTestStore(t, cfg)

	v, err := s.db.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	assert.NotEmpty(t, s.SessionID())

	require.NoError(t, s.Close())
	assert.Equal(t, 1, countRows(t, cfg.Path, "sessions"))
}

func TestOpen_ReusesExistingSchema(t *testing.T) {
	cfg := testConfig(t)

	first := openTestStore(t, cfg)
	require.NoError(t, first.Close())

	second := openTestStore(t, cfg)
	require.NoError(t, second.Close())

	assert.Equal(t, 2, countRows(t, cfg.Path, "sessions"))
}

func TestStore_PersistsAllRecordKinds(t *testing.T) {
	cfg := testConfig(t)
	s := openTestStore(t, cfg)

	now := time.Now()
	s.RecordFrame(scheduler.FrameRecord{
		Number:      1,
		SubmittedAt: now,
		Disposition: counter.Normal,
		Serial:      4,
		Interval:    16 * time.Millisecond,
		Render:      2 * time.Millisecond,
	})
	s.RecordDeferral(scheduler.DeferralRecord{
		At:             now,
		Disposition:    counter.Urgent,
		TimingSerial:   4,
		InflightSerial: 8,
	})
	s.RecordAck(session.AckRecord{
		Kind:            "timing",
		Serial:          4,
		At:              now,
		RefreshInterval: 16667,
	})

	require.NoError(t, s.Close())

	assert.Equal(t, 1, countRows(t, cfg.Path, "frames"))
	assert.Equal(t, 1, countRows(t, cfg.Path, "deferrals"))
	assert.Equal(t, 1, countRows(t, cfg.Path, "acks"))
}

func TestStore_FrameRowRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	s := openTestStore(t, cfg)
	sessionID := s.SessionID()

	s.RecordFrame(scheduler.FrameRecord{
		Number:      7,
		SubmittedAt: time.Now(),
		Disposition: counter.Urgent,
		Serial:      103,
		Interval:    33 * time.Millisecond,
		Render:      5 * time.Millisecond,
	})
	require.NoError(t, s.Close())

	db, err := openDB(cfg.Path)
	require.NoError(t, err)
	defer db.Close()

	var (
		disposition string
		serial      int64
		intervalUS  int64
	)
	require.NoError(t, db.QueryRow(
		`SELECT disposition, serial, interval_us FROM frames
		 WHERE session_id = ? AND frame_no = 7`, sessionID,
	).Scan(&disposition, &serial, &intervalUS))

	assert.Equal(t, "urgent", disposition)
	assert.EqualValues(t, 103, serial)
	assert.EqualValues(t, 33000, intervalUS)
}

func TestStore_FlushesOnThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.FlushThreshold = 2
	s := openTestStore(t, cfg)

	for i := uint64(1); i <= 4; i++ {
		s.RecordFrame(scheduler.FrameRecord{Number: i, SubmittedAt: time.Now()})
	}

	// Both threshold flushes happened inline; nothing is left buffered.
	assert.Equal(t, 0, s.buf.size())

	require.NoError(t, s.Close())
	assert.Equal(t, 4, countRows(t, cfg.Path, "frames"))
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.Path = "" }},
		{"zero threshold", func(c *Config) { c.FlushThreshold = 0 }},
		{"zero interval", func(c *Config) { c.FlushInterval = 0 }},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
