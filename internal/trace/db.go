package trace

import (
	"database/sql"
	"fmt"
)

// DB wraps sql.DB for the trace store.
type DB struct {
	*sql.DB
}

// openDB opens the SQLite trace database and applies schema migrations.
func openDB(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	wrapped := &DB{DB: db}
	if err := wrapped.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate trace schema: %w", err)
	}

	return wrapped, nil
}
