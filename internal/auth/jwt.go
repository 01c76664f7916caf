// internal/auth/jwt.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markb/glogin/internal/store"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// audience checks. A well-formed token whose session row is gone fails with
// store.ErrSessionNotFound.
var ErrInvalidToken = errors.New("invalid session token")

const (
	AccessTokenExpiry = 3600 // 1 hour

	// Audience is the aud claim of every issued session token.
	Audience = "authenticated"
)

// SessionStore is what session issuance needs from the account store.
type SessionStore interface {
	CreateSession(ctx context.Context, accountID string) (*store.Session, error)
	GetSession(ctx context.Context, id string) (*store.Session, error)
	GetAccount(ctx context.Context, id string) (*store.Account, error)
	UpdateLastSignIn(ctx context.Context, id string) error
}

// Claims is the decoded content of a valid session token.
type Claims struct {
	AccountID string
	SessionID string
	ExpiresAt time.Time
}

type Service struct {
	store     SessionStore
	jwtSecret string
	issuer    string
	now       func() time.Time
}

func NewService(s SessionStore, jwtSecret, issuer string) *Service {
	return &Service{
		store:     s,
		jwtSecret: jwtSecret,
		issuer:    issuer,
		now:       time.Now,
	}
}

// IssueSession records a session for account and returns the opaque
// credential the client presents afterwards.
func (s *Service) IssueSession(ctx context.Context, account *store.Account) (string, error) {
	session, err := s.store.CreateSession(ctx, account.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.store.UpdateLastSignIn(ctx, account.ID); err != nil {
		return "", fmt.Errorf("failed to update last sign in: %w", err)
	}

	token, err := s.GenerateAccessToken(account, session.ID)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (s *Service) GenerateAccessToken(account *store.Account, sessionID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"aud":        Audience,
		"exp":        now.Add(time.Duration(AccessTokenExpiry) * time.Second).Unix(),
		"iat":        now.Unix(),
		"iss":        s.issuer,
		"sub":        account.ID,
		"email":      account.Email,
		"aal":        "aal1",
		"session_id": sessionID,
		"app_metadata": map[string]any{
			"provider":     "google",
			"providers":    []string{"google"},
			"account_type": account.AccountType,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithAudience(Audience), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := mc["sub"].(string)
	sessionID, _ := mc["session_id"].(string)
	if sub == "" || sessionID == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{AccountID: sub, SessionID: sessionID}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Become returns the account behind a session token. The session row must
// still exist.
func (s *Service) Become(ctx context.Context, tokenString string) (*store.Account, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.AccountID {
		return nil, ErrInvalidToken
	}

	return s.store.GetAccount(ctx, claims.AccountID)
}
