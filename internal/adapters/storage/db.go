package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *LoggedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// TimestampLayout is the format used for timestamps stored as TEXT.
// It matches SQLite's strftime('%Y-%m-%dT%H:%M:%fZ','now'), so timestamps
// written by the database and timestamps parsed in Go compare correctly.
const TimestampLayout = "2006-01-02T15:04:05.999Z"

// InitDB initializes the database schema.
// Timestamps are assigned server-side via strftime at insert time, never by
// the caller, so ordering across concurrent appends follows the store's clock.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for safe concurrent appends from parallel handlers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS formatted_text (
		id TEXT PRIMARY KEY,
		original_text TEXT NOT NULL,
		formatting_parameters TEXT NOT NULL,
		formatted_text TEXT NOT NULL,
		recipient_email TEXT NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mail_request (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_formatted_text_created_at ON formatted_text(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// schemaVersion is bumped whenever MigrateDB gains a new step.
const schemaVersion = 1

// LatestSchemaVersion returns the schema version this binary migrates to.
func LatestSchemaVersion() int {
	return schemaVersion
}

// MigrateDB brings the database schema up to the latest version.
// Migrations are idempotent: running against an already-migrated database is a
// no-op.
// PRE: db is a valid database connection
// POST: schema matches LatestSchemaVersion
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	if err := InitDB(db); err != nil {
		return err
	}

	if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
