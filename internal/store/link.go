package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/markb/glogin/internal/acl"
)

// AccountLink maps an external account id to a local account and keeps the
// last access token presented for it.
type AccountLink struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ExternalID  string    `json:"account_id"`
	AccessToken string    `json:"-"`
	ACL         acl.ACL   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FindLinkByExternalID returns the first link for externalID, or
// ErrLinkNotFound.
func (s *Store) FindLinkByExternalID(ctx context.Context, externalID string) (*AccountLink, error) {
	var l AccountLink
	var rawACL, createdAt, updatedAt string

	err := s.h.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, access_token, acl, created_at, updated_at
		FROM token_storage
		WHERE account_id = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, externalID).Scan(&l.ID, &l.UserID, &l.ExternalID, &l.AccessToken, &rawACL, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, internalError("failed to get account link", err)
	}

	if l.ACL, err = decodeACL(rawACL); err != nil {
		return nil, err
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)

	return &l, nil
}

// CreateLink stores the association between account and externalID. If a
// link for externalID already exists the insert is rejected with
// ErrLinkExists and the existing link is left untouched.
func (s *Store) CreateLink(ctx context.Context, account *Account, externalID, accessToken string) (*AccountLink, error) {
	now := s.now()
	l := &AccountLink{
		ID:          generateID(),
		UserID:      account.ID,
		ExternalID:  externalID,
		AccessToken: accessToken,
		ACL:         acl.Restricted(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ts := now.Format(time.RFC3339)
	_, err := s.h.ExecContext(ctx, `
		INSERT INTO token_storage (id, user_id, account_id, access_token, acl, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.ExternalID, l.AccessToken, l.ACL.String(), ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &Error{Code: CodeDuplicateValue, Message: "account link already exists", Err: ErrLinkExists}
		}
		return nil, internalError("failed to create account link", err)
	}

	return l, nil
}

// UpdateLinkToken sets the link's access token. Nothing is written when the
// token is unchanged; the returned bool reports whether a write happened.
func (s *Store) UpdateLinkToken(ctx context.Context, link *AccountLink, accessToken string) (bool, error) {
	if link.AccessToken == accessToken {
		return false, nil
	}

	now := s.now()
	result, err := s.h.ExecContext(ctx, `
		UPDATE token_storage SET access_token = ?, updated_at = ? WHERE id = ?
	`, accessToken, now.Format(time.RFC3339), link.ID)
	if err != nil {
		return false, internalError("failed to update account link", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, internalError("failed to get rows affected", err)
	}
	if n == 0 {
		return false, ErrLinkNotFound
	}

	link.AccessToken = accessToken
	link.UpdatedAt = now
	return true, nil
}
