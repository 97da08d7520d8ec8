package archive

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		group_id     TEXT    NOT NULL,
		id           TEXT    NOT NULL,
		source_guid  TEXT    NOT NULL DEFAULT '',
		user_id      TEXT    NOT NULL DEFAULT '',
		name         TEXT    NOT NULL DEFAULT '',
		text         TEXT    NOT NULL DEFAULT '',
		system       INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL DEFAULT 0,
		favorited_by TEXT    NOT NULL DEFAULT '[]',
		attachments  TEXT    NOT NULL DEFAULT '[]',
		PRIMARY KEY (group_id, id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_group_created ON messages(group_id, created_at)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		text,
		content=messages,
		content_rowid=rowid
	)`,

	`CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
	END`,

	`CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
	END`,

	`CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
		INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
	END`,

	`CREATE TABLE IF NOT EXISTS archive_state (
		group_id        TEXT PRIMARY KEY,
		last_message_id TEXT NOT NULL DEFAULT '',
		synced_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("archive: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("archive: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("archive: record schema version: %w", err)
	}

	return nil
}
