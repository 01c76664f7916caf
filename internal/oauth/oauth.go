package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedProviderResponse is returned when the provider answers 2xx
	// but the body is not a usable identity document.
	ErrMalformedProviderResponse = errors.New("malformed provider response")
	ErrMissingCode               = errors.New("authorization code is required")
)

// Claims is the identity extracted from a successful verification.
type Claims struct {
	ExternalID  string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
}

// ProviderError reports a transport failure or a non-2xx answer from the
// provider. StatusCode is zero for transport failures.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("provider returned %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthorizeURL overrides the provider's authorization endpoint.
	AuthorizeURL string
	// ValidateURL is the endpoint that turns a code into an identity.
	ValidateURL string
}
