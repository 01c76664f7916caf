package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session is a server-side record backing an issued session credential.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	AAL       string    `json:"aal"`
}

// CreateSession records a new session for accountID.
func (s *Store) CreateSession(ctx context.Context, accountID string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        generateID(),
		UserID:    accountID,
		CreatedAt: now,
		AAL:       "aal1",
	}

	_, err := s.h.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, created_at, aal)
		VALUES (?, ?, ?, ?)
	`, sess.ID, sess.UserID, now.Format(time.RFC3339), sess.AAL)
	if err != nil {
		return nil, internalError("failed to create session", err)
	}

	return sess, nil
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var createdAt string

	err := s.h.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, aal FROM auth_sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.UserID, &createdAt, &sess.AAL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, internalError("failed to get session", err)
	}
	sess.CreatedAt = parseTime(createdAt)

	return &sess, nil
}
