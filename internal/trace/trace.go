// Package trace persists frame, deferral, and acknowledgment records to
// a SQLite database for offline analysis. Records are buffered on the
// presentation loop and handed to a background writer in batches, so a
// slow disk never stalls frame pacing. Trace failures are logged and
// dropped; they never propagate into scheduling.
package trace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veldt/framepace/internal/scheduler"
	"github.com/veldt/framepace/internal/session"
)

// SessionInfo describes the run being traced.
type SessionInfo struct {
	TargetRate   float64
	Synchronized bool
}

// Store is a buffered trace recorder backed by SQLite.
type Store struct {
	config    Config
	logger    *slog.Logger
	db        *DB
	sessionID string

	// Buffered records; only the presentation loop touches these.
	buf      batch
	bufSince time.Time
	dropped  int

	batches chan batch
	wg      sync.WaitGroup
}

var _ session.Recorder = (*Store)(nil)

type batch struct {
	frames    []scheduler.FrameRecord
	deferrals []scheduler.DeferralRecord
	acks      []session.AckRecord
}

func (b batch) size() int {
	return len(b.frames) + len(b.deferrals) + len(b.acks)
}

// Open opens the trace database, applies migrations, registers the
// session, and starts the background writer.
func Open(config Config, info SessionInfo, logger *slog.Logger) (*Store, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	db, err := openDB(config.Path)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	if _, err := db.Exec(
		`INSERT INTO sessions (session_id, started_at, target_rate, synchronized)
		 VALUES (?, ?, ?, ?)`,
		sessionID, time.Now().UTC(), info.TargetRate, info.Synchronized,
	); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		config:    config,
		logger:    logger,
		db:        db,
		sessionID: sessionID,
		bufSince:  time.Now(),
		batches:   make(chan batch, config.QueueSize),
	}

	s.wg.Add(1)
	go s.writer()

	logger.Info("trace store opened", "path", config.Path, "session_id", sessionID)
	return s, nil
}

// SessionID returns the identifier under which records are stored.
func (s *Store) SessionID() string { return s.sessionID }

// RecordFrame buffers one submitted frame.
func (s *Store) RecordFrame(rec scheduler.FrameRecord) {
	s.buf.frames = append(s.buf.frames, rec)
	s.maybeFlush()
}

// RecordDeferral buffers one flow-control deferral.
func (s *Store) RecordDeferral(rec scheduler.DeferralRecord) {
	s.buf.deferrals = append(s.buf.deferrals, rec)
	s.maybeFlush()
}

// RecordAck buffers one acknowledgment.
func (s *Store) RecordAck(rec session.AckRecord) {
	s.buf.acks = append(s.buf.acks, rec)
	s.maybeFlush()
}

func (s *Store) maybeFlush() {
	if s.buf.size() >= s.config.FlushThreshold ||
		time.Since(s.bufSince) >= s.config.FlushInterval {
		s.flush()
	}
}

// flush hands the current buffer to the writer. If the writer's queue is
// full the batch is dropped rather than blocking the loop.
func (s *Store) flush() {
	if s.buf.size() == 0 {
		s.bufSince = time.Now()
		return
	}

	select {
	case s.batches <- s.buf:
	default:
		s.dropped += s.buf.size()
		s.logger.Warn("trace writer backlogged, dropping batch",
			"records", s.buf.size(),
			"dropped_total", s.dropped)
	}

	s.buf = batch{}
	s.bufSince = time.Now()
}

// Close flushes buffered records, stops the writer, stamps the session
// end time, and closes the database.
func (s *Store) Close() error {
	s.flush()
	close(s.batches)
	s.wg.Wait()

	if _, err := s.db.Exec(
		"UPDATE sessions SET ended_at = ? WHERE session_id = ?",
		time.Now().UTC(), s.sessionID,
	); err != nil {
		s.logger.Warn("failed to stamp session end", "error", err)
	}

	return s.db.Close()
}

func (s *Store) writer() {
	defer s.wg.Done()
	for b := range s.batches {
		if err := s.write(b); err != nil {
			s.logger.Warn("trace batch write failed",
				"records", b.size(),
				"error", err)
		}
	}
}

func (s *Store) write(b batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range b.frames {
		if _, err := tx.Exec(
			`INSERT INTO frames (session_id, frame_no, submitted_at, disposition,
			                     serial, interval_us, render_us)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.sessionID, f.Number, f.SubmittedAt.UTC(), f.Disposition.String(),
			int64(f.Serial), f.Interval.Microseconds(), f.Render.Microseconds(),
		); err != nil {
			return err
		}
	}

	for _, d := range b.deferrals {
		if _, err := tx.Exec(
			`INSERT INTO deferrals (session_id, deferred_at, disposition,
			                        timing_serial, inflight_serial)
			 VALUES (?, ?, ?, ?, ?)`,
			s.sessionID, d.At.UTC(), d.Disposition.String(),
			int64(d.TimingSerial), int64(d.InflightSerial),
		); err != nil {
			return err
		}
	}

	for _, a := range b.acks {
		if _, err := tx.Exec(
			`INSERT INTO acks (session_id, kind, serial, received_at,
			                   presentation_offset, refresh_interval, frame_delay)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.sessionID, a.Kind, int64(a.Serial), a.At.UTC(),
			a.PresentationOffset, a.RefreshInterval, a.FrameDelay,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
