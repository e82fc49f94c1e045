// Package sqlitestore persists conversation history in a SQLite database
// using modernc.org/sqlite (pure Go, no CGO). It is an alternative to the
// JSON document backend with the same whole-snapshot semantics: every Save
// replaces the stored history in a single transaction.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flemzord/convo/internal/history"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000

// Persister implements history.Persister backed by SQLite.
type Persister struct {
	db *sql.DB
}

// Compile-time interface check.
var _ history.Persister = (*Persister)(nil)

// Open opens (creating if needed) the database at path. The parent directory
// is created with owner-only permissions. The schema is migrated
// automatically. The caller must Close the returned persister.
func Open(path string) (*Persister, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlitestore: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}

	// SQLite serialises writes; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := os.Chmod(path, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: chmod %s: %w", path, err)
	}

	return &Persister{db: db}, nil
}

// Close releases the database handle.
func (p *Persister) Close() error {
	return p.db.Close()
}

// Load reads every stored entry, ordered most-recent-first per chat.
// Rows with unparseable timestamps make the whole load fail with
// history.ErrMalformed.
func (p *Persister) Load() (history.Snapshot, error) {
	rows, err := p.db.QueryContext(context.TODO(), `
		SELECT chat_id, conversation_id, assistant_session_id, project_path,
		       project_name, last_message_preview, created_at, last_activity
		FROM history_entries
		ORDER BY chat_id ASC, position ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := history.Snapshot{}
	for rows.Next() {
		var (
			chatID                  int64
			e                       history.Entry
			createdAt, lastActivity string
		)
		if err := rows.Scan(&chatID, &e.ConversationID, &e.AssistantSessionID, &e.ProjectPath,
			&e.ProjectName, &e.LastMessagePreview, &createdAt, &lastActivity); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan entry: %w", err)
		}
		if e.CreatedAt, err = history.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: chat %d created_at: %v", history.ErrMalformed, chatID, err)
		}
		if e.LastActivity, err = history.ParseTime(lastActivity); err != nil {
			return nil, fmt.Errorf("%w: chat %d last_activity: %v", history.ErrMalformed, chatID, err)
		}
		id := history.ChatID(chatID)
		snap[id] = append(snap[id], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: load rows: %w", err)
	}
	return snap, nil
}

// Save replaces the stored history with s.
func (p *Persister) Save(s history.Snapshot) error {
	ctx := context.TODO()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history_entries"); err != nil {
		return fmt.Errorf("sqlitestore: clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history_entries (chat_id, position, conversation_id, assistant_session_id,
		                             project_path, project_name, last_message_preview,
		                             created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for chatID, entries := range s {
		for pos, e := range entries {
			if _, err := stmt.ExecContext(ctx,
				int64(chatID), pos, e.ConversationID, e.AssistantSessionID,
				e.ProjectPath, e.ProjectName, e.LastMessagePreview,
				history.FormatTime(e.CreatedAt), history.FormatTime(e.LastActivity),
			); err != nil {
				return fmt.Errorf("sqlitestore: insert chat %d entry %d: %w", chatID, pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit save: %w", err)
	}
	return nil
}
