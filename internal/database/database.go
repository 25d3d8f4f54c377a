package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// busyTimeoutMillis lets a writer wait for a competing writer's file lock
// instead of failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// Connect opens a SQLite database using the provided DSN.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database %s: %w", dsn, err)
	}
	return db, nil
}
