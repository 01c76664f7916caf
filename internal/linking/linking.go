// Package linking resolves a verified external identity to the local account
// that owns it, creating the account and its link on first login.
package linking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/markb/glogin/internal/log"
	"github.com/markb/glogin/internal/oauth"
	"github.com/markb/glogin/internal/store"
)

// ErrInvalidProviderClaims is returned when the claims carry no external id.
var ErrInvalidProviderClaims = errors.New("provider claims missing external id")

const (
	// AccountTypeGoogle marks accounts created through Google login.
	AccountTypeGoogle = "g"

	// secretBytes is the size of the random username and password.
	secretBytes = 24
)

// Store is the subset of the account store the service needs.
type Store interface {
	FindLinkByExternalID(ctx context.Context, externalID string) (*store.AccountLink, error)
	GetAccount(ctx context.Context, id string) (*store.Account, error)
	CreateAccount(ctx context.Context, p store.Profile) (*store.Account, error)
	CreateLink(ctx context.Context, account *store.Account, externalID, accessToken string) (*store.AccountLink, error)
	UpdateLinkToken(ctx context.Context, link *store.AccountLink, accessToken string) (bool, error)
}

// Result describes what a LinkOrCreate call did.
type Result struct {
	Account      *store.Account
	Created      bool // this call created the account that won
	RaceLost     bool // this call created an account that lost to another caller
	TokenUpdated bool
}

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// LinkOrCreate returns the account linked to claims.ExternalID, creating it
// on first login. The stored access token is refreshed only when it differs.
func (s *Service) LinkOrCreate(ctx context.Context, accessToken string, claims *oauth.Claims, email string) (*store.Account, error) {
	res, err := s.Resolve(ctx, accessToken, claims, email)
	if err != nil {
		return nil, err
	}
	return res.Account, nil
}

// Resolve is LinkOrCreate with details on the path taken.
func (s *Service) Resolve(ctx context.Context, accessToken string, claims *oauth.Claims, email string) (*Result, error) {
	if claims == nil || claims.ExternalID == "" {
		return nil, ErrInvalidProviderClaims
	}

	ctx, span := otel.Tracer("glogin/linking").Start(ctx, "linking.link_or_create")
	defer span.End()
	span.SetAttributes(attribute.String("oauth.external_id", claims.ExternalID))

	res, err := s.resolve(ctx, accessToken, claims, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("user.id", res.Account.ID),
		attribute.Bool("linking.created", res.Created),
	)
	return res, nil
}

func (s *Service) resolve(ctx context.Context, accessToken string, claims *oauth.Claims, email string) (*Result, error) {
	res, err := s.lookup(ctx, claims.ExternalID, accessToken)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, store.ErrLinkNotFound) {
		return nil, err
	}

	created, err := s.create(ctx, accessToken, claims, email)
	if err != nil {
		return nil, err
	}

	// Whatever link the store now holds is canonical, ours or a concurrent
	// caller's.
	res, err = s.lookup(ctx, claims.ExternalID, accessToken)
	if errors.Is(err, store.ErrLinkNotFound) {
		return nil, &store.Error{Code: store.CodeObjectNotFound, Message: "account link missing after create", Err: err}
	}
	if err != nil {
		return nil, err
	}

	if res.Account.ID == created.ID {
		res.Created = true
	} else {
		res.RaceLost = true
		log.FromContext(ctx).Warn("account link race lost",
			"external_id", claims.ExternalID,
			"orphan_account_id", created.ID,
			"account_id", res.Account.ID,
		)
	}
	return res, nil
}

func (s *Service) lookup(ctx context.Context, externalID, accessToken string) (*Result, error) {
	link, err := s.store.FindLinkByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, link.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked account: %w", err)
	}

	updated, err := s.store.UpdateLinkToken(ctx, link, accessToken)
	if err != nil {
		return nil, err
	}
	if updated {
		log.FromContext(ctx).Debug("account link token updated", "account_id", account.ID)
	}

	return &Result{Account: account, TokenUpdated: updated}, nil
}

// create persists a new account and its link. Losing the link insert to a
// concurrent caller is not an error; the account created here is then left
// orphaned.
func (s *Service) create(ctx context.Context, accessToken string, claims *oauth.Claims, email string) (*store.Account, error) {
	username, err := store.RandomSecret(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate username: %w", err)
	}
	password, err := store.RandomSecret(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	first, last := splitName(claims.DisplayName)
	account, err := s.store.CreateAccount(ctx, store.Profile{
		Username:    username,
		Password:    password,
		Email:       email,
		FirstName:   first,
		LastName:    last,
		AccountType: AccountTypeGoogle,
	})
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Info("account created", "account_id", account.ID, "external_id", claims.ExternalID)

	if _, err := s.store.CreateLink(ctx, account, claims.ExternalID, accessToken); err != nil {
		if !errors.Is(err, store.ErrLinkExists) {
			return nil, err
		}
	}

	return account, nil
}

// splitName takes the first whitespace token as the first name and, when
// there is more than one token, the last as the last name. Middle tokens
// are dropped.
func splitName(displayName string) (first, last string) {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	return first, last
}
