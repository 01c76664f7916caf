package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// DefaultValidateURL answers with the profile of the code's owner.
	DefaultValidateURL = "https://www.googleapis.com/oauth2/v1/userinfo"

	// maxBodyBytes bounds how much of a provider response is read.
	maxBodyBytes = 1 << 20
)

// GoogleProvider verifies authorization codes against Google.
type GoogleProvider struct {
	config      *oauth2.Config
	validateURL string
	client      *http.Client
}

// NewGoogleProvider creates a Google provider. A nil client falls back to
// http.DefaultClient.
func NewGoogleProvider(cfg Config, client *http.Client) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthorizeURL != "" {
		endpoint.AuthURL = cfg.AuthorizeURL
	}
	validateURL := cfg.ValidateURL
	if validateURL == "" {
		validateURL = DefaultValidateURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		validateURL: validateURL,
		client:      client,
	}
}

// Name returns "google".
func (g *GoogleProvider) Name() string {
	return "google"
}

// AuthURL returns the authorization URL carrying the client id and state.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Verify exchanges code for the identity it belongs to with a single
// request. No retries are attempted.
func (g *GoogleProvider) Verify(ctx context.Context, code string) (*Claims, error) {
	ctx, span := otel.Tracer("glogin/oauth").Start(ctx, "oauth.google.verify")
	defer span.End()

	if code == "" {
		return nil, ErrMissingCode
	}

	claims, err := g.verify(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("oauth.external_id", claims.ExternalID))
	return claims, nil
}

func (g *GoogleProvider) verify(ctx context.Context, code string) (*Claims, error) {
	u, err := url.Parse(g.validateURL)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("invalid validate url: %w", err)}
	}
	q := u.Query()
	q.Set("access_token", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("google userinfo request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read google userinfo: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var googleUser struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Email string          `json:"email"`
	}
	if err := json.Unmarshal(body, &googleUser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProviderResponse, err)
	}
	id, err := externalID(googleUser.ID)
	if err != nil {
		return nil, err
	}

	return &Claims{
		ExternalID:  id,
		DisplayName: googleUser.Name,
		Email:       googleUser.Email,
	}, nil
}

// externalID normalizes the userinfo id to a string. Google sends a decimal
// string; a bare number is accepted too. Empty, zero and null ids are
// missing.
func externalID(raw json.RawMessage) (string, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if len(raw) > 0 {
		if err := dec.Decode(&v); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedProviderResponse, err)
		}
	}

	switch id := v.(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case json.Number:
		if f, err := id.Float64(); err == nil && f != 0 {
			return id.String(), nil
		}
	case nil:
	default:
		return "", fmt.Errorf("%w: id must be a string or number", ErrMalformedProviderResponse)
	}
	return "", fmt.Errorf("%w: missing id", ErrMalformedProviderResponse)
}
