package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS history_entries (
		chat_id              INTEGER NOT NULL,
		position             INTEGER NOT NULL,
		conversation_id      TEXT    NOT NULL,
		assistant_session_id TEXT    NOT NULL DEFAULT '',
		project_path         TEXT    NOT NULL DEFAULT '',
		project_name         TEXT    NOT NULL DEFAULT '',
		last_message_preview TEXT    NOT NULL DEFAULT '',
		created_at           TEXT    NOT NULL,
		last_activity        TEXT    NOT NULL,
		PRIMARY KEY (chat_id, position)
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_history_conversation
		ON history_entries(chat_id, conversation_id)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlitestore: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlitestore: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlitestore: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlitestore: record schema version: %w", err)
	}

	return nil
}
