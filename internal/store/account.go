package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/markb/glogin/internal/acl"
	"golang.org/x/crypto/bcrypt"
)

// Account is the platform's native user entity.
type Account struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	EncryptedPassword string     `json:"-"`
	Email             string     `json:"email,omitempty"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	AccountType       string     `json:"account_type"`
	ACL               acl.ACL    `json:"-"`
	LastSignInAt      *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Profile is the input for CreateAccount. Password is plaintext here and
// only its bcrypt hash is persisted.
type Profile struct {
	Username    string
	Password    string
	Email       string
	FirstName   string
	LastName    string
	AccountType string
}

// CreateAccount persists a new owner-only account.
func (s *Store) CreateAccount(ctx context.Context, p Profile) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError("failed to hash password", err)
	}

	id := generateID()
	now := s.now().Format(time.RFC3339)

	_, err = s.h.ExecContext(ctx, `
		INSERT INTO auth_users (id, username, encrypted_password, email, first_name, last_name, account_type, acl, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, p.Username, string(hash), nullable(p.Email), nullable(p.FirstName), nullable(p.LastName),
		p.AccountType, acl.Restricted().String(), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &Error{Code: CodeUsernameTaken, Message: "account already exists", Err: ErrAccountCreateConflict}
		}
		return nil, internalError("failed to create account", err)
	}

	return s.GetAccount(ctx, id)
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*Account, error) {
	var a Account
	var rawACL, createdAt, updatedAt string
	var email, firstName, lastName, accountType, lastSignInAt sql.NullString

	err := s.h.QueryRowContext(ctx, `
		SELECT id, username, encrypted_password, email, first_name, last_name, account_type,
		       acl, last_sign_in_at, created_at, updated_at
		FROM auth_users WHERE id = ?
	`, id).Scan(&a.ID, &a.Username, &a.EncryptedPassword, &email, &firstName, &lastName, &accountType,
		&rawACL, &lastSignInAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, internalError("failed to get account", err)
	}

	if a.ACL, err = decodeACL(rawACL); err != nil {
		return nil, err
	}

	a.Email = email.String
	a.FirstName = firstName.String
	a.LastName = lastName.String
	a.AccountType = accountType.String
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	if lastSignInAt.Valid {
		t := parseTime(lastSignInAt.String)
		a.LastSignInAt = &t
	}

	return &a, nil
}

// UpdateLastSignIn stamps the account's last_sign_in_at.
func (s *Store) UpdateLastSignIn(ctx context.Context, id string) error {
	now := s.now().Format(time.RFC3339)
	result, err := s.h.ExecContext(ctx,
		"UPDATE auth_users SET last_sign_in_at = ?, updated_at = ? WHERE id = ?", now, now, id)
	if err != nil {
		return internalError("failed to update last sign in", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return internalError("failed to get rows affected", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountAccounts returns the number of stored accounts.
func (s *Store) CountAccounts(ctx context.Context) (int, error) {
	var n int
	if err := s.h.QueryRowContext(ctx, "SELECT COUNT(*) FROM auth_users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return n, nil
}

// ListAccounts returns up to limit accounts, oldest first.
func (s *Store) ListAccounts(ctx context.Context, limit int) ([]*Account, error) {
	rows, err := s.h.QueryContext(ctx,
		"SELECT id FROM auth_users ORDER BY created_at, id LIMIT ?", limit)
	if err != nil {
		return nil, internalError("failed to list accounts", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, internalError("failed to scan account id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, internalError("failed to list accounts", err)
	}

	accounts := make([]*Account, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
