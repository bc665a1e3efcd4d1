// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package history provides a local transcript cache backed by SQLite.
//
// The backend remains the source of truth for sessions and messages.
// The cache keeps a copy of everything the client has seen so previous
// conversations stay browsable when the server is unreachable.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Akshat-jwr/agribot-tui/internal/api"
)

// =============================================================================
// CACHE
// =============================================================================

// ErrNotCached indicates a session has never been stored locally.
var ErrNotCached = fmt.Errorf("session not in local cache")

// Cache is a SQLite-backed transcript cache.
type Cache struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the cache at dbPath.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history tables: %w", err)
	}

	return &Cache{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	language      TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	cached_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL,
	role              TEXT NOT NULL,
	content           TEXT NOT NULL,
	fact_check_status TEXT,
	confidence        REAL,
	created_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// =============================================================================
// WRITES
// =============================================================================

// PutSession inserts or refreshes a session row.
func (c *Cache) PutSession(s api.ChatSession) error {
	// REPLACE INTO handles both insert and update cases.
	_, err := c.db.Exec(`
		REPLACE INTO sessions (id, title, language, message_count, created_at, updated_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Title, s.LanguagePreference, s.MessageCount,
		s.CreatedAt.Format(time.RFC3339Nano), s.UpdatedAt.Format(time.RFC3339Nano),
		time.Now().UnixMicro())
	if err != nil {
		return fmt.Errorf("caching session: %w", err)
	}
	return nil
}

// PutMessages inserts or refreshes message rows for a session.
func (c *Cache) PutMessages(sessionID string, msgs []api.ChatMessage) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("caching messages: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		var confidence any
		if m.ConfidenceScore != nil {
			confidence = *m.ConfidenceScore
		}
		_, err := tx.Exec(`
			REPLACE INTO messages (id, session_id, role, content, fact_check_status, confidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, m.ID, sessionID, string(m.Role), m.Content, string(m.FactCheckStatus),
			confidence, m.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("caching message %d: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteSession removes a session and its messages from the cache.
func (c *Cache) DeleteSession(sessionID string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

// Sessions lists cached sessions, most recently updated first.
func (c *Cache) Sessions() ([]api.ChatSession, error) {
	rows, err := c.db.Query(`
		SELECT id, title, language, message_count, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing cached sessions: %w", err)
	}
	defer rows.Close()

	var sessions []api.ChatSession
	for rows.Next() {
		var s api.ChatSession
		var created, updated string
		if err := rows.Scan(&s.ID, &s.Title, &s.LanguagePreference, &s.MessageCount, &created, &updated); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Messages returns the cached transcript for a session in creation
// order. Returns ErrNotCached when the session is unknown.
func (c *Cache) Messages(sessionID string) ([]api.ChatMessage, error) {
	var exists int
	err := c.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}

	rows, err := c.db.Query(`
		SELECT id, role, content, fact_check_status, confidence, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading cached transcript: %w", err)
	}
	defer rows.Close()

	var msgs []api.ChatMessage
	for rows.Next() {
		var m api.ChatMessage
		var status sql.NullString
		var confidence sql.NullFloat64
		var created string
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &status, &confidence, &created); err != nil {
			return nil, err
		}
		m.SessionID = sessionID
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		if status.Valid {
			m.FactCheckStatus = api.FactCheckStatus(status.String)
		}
		if confidence.Valid {
			v := confidence.Float64
			m.ConfidenceScore = &v
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
