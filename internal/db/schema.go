package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema matches the daemon's files and pins tables; only the columns the
// feed reads are required
const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	is_folder INTEGER NOT NULL DEFAULT 0,
	size INTEGER,
	mime_type TEXT,
	hash TEXT,
	modified_at TEXT NOT NULL,
	created_at TEXT NOT NULL,
	last_scanned_at TEXT,
	text_preview TEXT,
	screenshot_sqlar TEXT
);
CREATE INDEX IF NOT EXISTS idx_files_created_at ON files(created_at);

CREATE TABLE IF NOT EXISTS pins (
	path TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pins_created_at ON pins(created_at DESC);
`

// EnsureSchema creates the files and pins tables if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
