package ckg

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS functions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT    NOT NULL,
		file_path       TEXT    NOT NULL,
		body            TEXT    NOT NULL,
		start_line      INTEGER NOT NULL,
		end_line        INTEGER NOT NULL,
		parent_function TEXT,
		parent_class    TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name)`,

	`CREATE TABLE IF NOT EXISTS classes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		file_path  TEXT    NOT NULL,
		body       TEXT    NOT NULL,
		fields     TEXT,
		methods    TEXT,
		start_line INTEGER NOT NULL,
		end_line   INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_classes_name ON classes(name)`,
}

// migrate creates the schema when the database is new.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ckg: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("ckg: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ckg: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("ckg: record schema version: %w", err)
	}
	return nil
}
