package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/markb/glogin/internal/acl"
)

// PendingRequest is recorded before the browser is sent to the provider.
// Its ID travels as the OAuth state parameter.
type PendingRequest struct {
	ID        string    `json:"id"`
	ACL       acl.ACL   `json:"acl"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePendingRequest saves a new owner-only request and returns its id.
func (s *Store) CreatePendingRequest(ctx context.Context) (string, error) {
	id := generateID()
	now := s.now()

	_, err := s.h.ExecContext(ctx, `
		INSERT INTO token_requests (id, acl, created_at)
		VALUES (?, ?, ?)
	`, id, acl.Restricted().String(), now.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistPendingRequest, err)
	}

	return id, nil
}

// FindPendingRequest loads a request by id.
func (s *Store) FindPendingRequest(ctx context.Context, id string) (*PendingRequest, error) {
	var req PendingRequest
	var rawACL, createdAt string

	err := s.h.QueryRowContext(ctx, `
		SELECT id, acl, created_at FROM token_requests WHERE id = ?
	`, id).Scan(&req.ID, &rawACL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPendingRequestNotFound
	}
	if err != nil {
		return nil, internalError("failed to get auth request", err)
	}

	if req.ACL, err = decodeACL(rawACL); err != nil {
		return nil, err
	}
	req.CreatedAt = parseTime(createdAt)

	return &req, nil
}

// CleanupPendingRequests removes requests created before cutoff.
func (s *Store) CleanupPendingRequests(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.h.ExecContext(ctx,
		"DELETE FROM token_requests WHERE created_at < ?",
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, internalError("failed to clean up auth requests", err)
	}
	return result.RowsAffected()
}
