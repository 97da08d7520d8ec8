// Package archive persists group messages to a local SQLite database with
// full-text search over the message text. It keeps per-group sync state so
// repeated syncs only fetch messages newer than the last one stored.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration

	"github.com/flemzord/groupme/pkg/groupme"
)

const busyTimeoutMillis = 5000

// Store is a message archive backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the archive database at the given path.
//
// The database is created with WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes). The schema is migrated automatically.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("archive: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores messages for a group. Messages already present are replaced
// (the FTS index is updated via triggers).
func (s *Store) Insert(ctx context.Context, groupID string, msgs ...*groupme.Message) error {
	for _, msg := range msgs {
		favorited, err := json.Marshal(msg.FavoritedBy)
		if err != nil {
			return fmt.Errorf("archive: marshal favorited_by: %w", err)
		}
		attachments, err := json.Marshal(msg.RawAttachments)
		if err != nil {
			return fmt.Errorf("archive: marshal attachments: %w", err)
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO messages
				(group_id, id, source_guid, user_id, name, text, system, created_at, favorited_by, attachments)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			groupID, msg.ID, msg.SourceGUID, msg.UserID, msg.Name, msg.Text,
			boolToInt(msg.System), msg.CreatedAt,
			string(favorited), string(attachments),
		)
		if err != nil {
			return fmt.Errorf("archive: insert message %s: %w", msg.ID, err)
		}
	}
	return nil
}

// Search retrieves up to limit archived messages matching the FTS5 query,
// most relevant first. An empty group id searches across all groups.
func (s *Store) Search(ctx context.Context, groupID, query string, limit int) ([]*groupme.Message, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.group_id, m.id, m.source_guid, m.user_id, m.name, m.text,
		       m.system, m.created_at, m.favorited_by, m.attachments
		FROM messages_fts
		JOIN messages m ON m.rowid = messages_fts.rowid
		WHERE messages_fts MATCH ? AND (? = '' OR m.group_id = ?)
		ORDER BY rank
		LIMIT ?`,
		query, groupID, groupID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("archive: search messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// LastMessageID returns the id of the newest synced message for the group,
// or "" when the group has never been synced.
func (s *Store) LastMessageID(ctx context.Context, groupID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT last_message_id FROM archive_state WHERE group_id = ?", groupID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("archive: read sync state: %w", err)
	}
	return id, nil
}

// Count returns the number of archived messages for the group.
func (s *Store) Count(ctx context.Context, groupID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE group_id = ?", groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("archive: count messages: %w", err)
	}
	return count, nil
}

func (s *Store) setLastMessageID(ctx context.Context, groupID, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO archive_state (group_id, last_message_id, synced_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))`,
		groupID, id,
	)
	if err != nil {
		return fmt.Errorf("archive: record sync state: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]*groupme.Message, error) {
	var msgs []*groupme.Message
	for rows.Next() {
		var (
			msg             groupme.Message
			system          int
			favoritedJSON   string
			attachmentsJSON string
		)

		if err := rows.Scan(&msg.GroupID, &msg.ID, &msg.SourceGUID, &msg.UserID,
			&msg.Name, &msg.Text, &system, &msg.CreatedAt,
			&favoritedJSON, &attachmentsJSON); err != nil {
			return nil, fmt.Errorf("archive: scan message: %w", err)
		}
		msg.System = system != 0

		if favoritedJSON != "" && favoritedJSON != "[]" && favoritedJSON != "null" {
			if err := json.Unmarshal([]byte(favoritedJSON), &msg.FavoritedBy); err != nil {
				return nil, fmt.Errorf("archive: unmarshal favorited_by: %w", err)
			}
		}
		if attachmentsJSON != "" && attachmentsJSON != "[]" && attachmentsJSON != "null" {
			if err := json.Unmarshal([]byte(attachmentsJSON), &msg.RawAttachments); err != nil {
				return nil, fmt.Errorf("archive: unmarshal attachments: %w", err)
			}
		}

		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: scan message rows: %w", err)
	}

	return msgs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
