package trace

import "fmt"

// migrations is the ordered list of schema versions. Version n is
// migrations[n-1]; new versions append, existing entries never change.
var migrations = []string{
	// v1: initial trace schema
	`
	CREATE TABLE sessions (
		session_id   TEXT PRIMARY KEY,
		started_at   TIMESTAMP NOT NULL,
		ended_at     TIMESTAMP,
		target_rate  REAL NOT NULL,
		synchronized BOOLEAN NOT NULL
	);

	CREATE TABLE frames (
		session_id  TEXT NOT NULL REFERENCES sessions(session_id),
		frame_no    INTEGER NOT NULL,
		submitted_at TIMESTAMP NOT NULL,
		disposition TEXT NOT NULL,
		serial      INTEGER NOT NULL,
		interval_us INTEGER NOT NULL,
		render_us   INTEGER NOT NULL,
		PRIMARY KEY (session_id, frame_no)
	);

	CREATE TABLE deferrals (
		session_id      TEXT NOT NULL REFERENCES sessions(session_id),
		deferred_at     TIMESTAMP NOT NULL,
		disposition     TEXT NOT NULL,
		timing_serial   INTEGER NOT NULL,
		inflight_serial INTEGER NOT NULL
	);

	CREATE TABLE acks (
		session_id          TEXT NOT NULL REFERENCES sessions(session_id),
		kind                TEXT NOT NULL,
		serial              INTEGER NOT NULL,
		received_at         TIMESTAMP NOT NULL,
		presentation_offset INTEGER NOT NULL,
		refresh_interval    INTEGER NOT NULL,
		frame_delay         INTEGER NOT NULL
	);
	`,
}

// migrate applies any schema versions newer than the recorded one.
func (db *DB) migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return err
	}

	var current int
	if err := db.QueryRow(
		"SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return err
	}

	for v := current + 1; v <= len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migrations[v-1]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d version bump failed: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit failed: %w", v, err)
		}
	}

	return nil
}

// schemaVersion returns the currently applied schema version.
func (db *DB) schemaVersion() (int, error) {
	var v int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}
