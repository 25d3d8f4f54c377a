package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the medicine table if it does not exist yet.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS medicine (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            location TEXT,
            category TEXT,
            expiry_date TEXT
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
