package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ConversationEntry is one message of a chat session.
type ConversationEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendMessage adds an entry to the conversation log.
func (s *Store) AppendMessage(ctx context.Context, entry *ConversationEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_entries (session_id, user_id, role, message, intent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.UserID, entry.Role, entry.Message, entry.Intent, entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		err = errors.Wrap(err, "append conversation entry")
		return errors.WithDetailf(err, "session: %s, role: %s", entry.SessionID, entry.Role)
	}

	entry.ID, _ = res.LastInsertId()
	return nil
}

// SessionMessages returns every entry of a session, oldest first.
func (s *Store) SessionMessages(ctx context.Context, sessionID string) ([]*ConversationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, message, intent, created_at
		FROM conversation_entries WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "query session %q", sessionID)
	}
	return scanEntries(rows)
}

// RecentSessionMessages returns the last limit entries of a session, oldest first.
func (s *Store) RecentSessionMessages(ctx context.Context, sessionID string, limit int) ([]*ConversationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, message, intent, created_at FROM (
			SELECT * FROM conversation_entries WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "query recent messages of session %q", sessionID)
	}
	return scanEntries(rows)
}

// UserMessages returns entries of a user across sessions, newest first.
func (s *Store) UserMessages(ctx context.Context, userID string, limit int) ([]*ConversationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, message, intent, created_at
		FROM conversation_entries WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "query messages of user %q", userID)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*ConversationEntry, error) {
	defer rows.Close()

	var entries []*ConversationEntry
	for rows.Next() {
		var e ConversationEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Role, &e.Message, &e.Intent, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan conversation entry")
		}
		e.Timestamp = time.UnixMilli(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
