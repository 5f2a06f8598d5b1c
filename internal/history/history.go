// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists the conversation transcript between runs.
//
// The transcript cache is advisory: the realtime channel owns the live
// conversation, and history only backfills the screen on startup. Write
// failures are logged by callers, never fatal.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/antibia/hrchat-tui/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	intent          TEXT NOT NULL DEFAULT '',
	actions         TEXT NOT NULL DEFAULT '',
	metadata        TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, created_at);
`

// Store is the sqlite-backed transcript cache.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// sqlite supports one writer; a second connection only buys lock errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one message. Re-appending the same message ID is a no-op,
// which makes replays after a reconnect harmless.
func (s *Store) Append(conversationID string, msg *model.Message) error {
	actions := ""
	if len(msg.Actions) > 0 {
		if data, err := json.Marshal(msg.Actions); err == nil {
			actions = string(data)
		}
	}
	metadata := ""
	if len(msg.Metadata) > 0 {
		if data, err := json.Marshal(msg.Metadata); err == nil {
			metadata = string(data)
		}
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO messages (id, conversation_id, role, content, intent, actions, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, string(msg.Role), msg.Content, msg.Intent,
		actions, metadata, msg.Timestamp.UnixMilli(),
	)
	return err
}

// Recent returns the last n messages of a conversation in chronological
// order.
func (s *Store) Recent(conversationID string, n int) ([]*model.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, intent, actions, metadata, created_at
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		conversationID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		var (
			msg               model.Message
			role              string
			actions, metadata string
			createdAt         int64
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Intent, &actions, &metadata, &createdAt); err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.UnixMilli(createdAt)
		if actions != "" {
			json.Unmarshal([]byte(actions), &msg.Actions)
		}
		if metadata != "" {
			json.Unmarshal([]byte(metadata), &msg.Metadata)
		}
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returned newest first; flip to transcript order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Count returns the number of cached messages for a conversation.
func (s *Store) Count(conversationID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&n)
	return n, err
}

// Clear removes a conversation's cached transcript.
func (s *Store) Clear(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	return err
}

// ClearAll wipes the whole cache. Used on logout.
func (s *Store) ClearAll() error {
	_, err := s.db.Exec(`DELETE FROM messages`)
	return err
}
