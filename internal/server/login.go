package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/markb/glogin/internal/linking"
	"github.com/markb/glogin/internal/log"
	"github.com/markb/glogin/internal/oauth"
	"github.com/markb/glogin/internal/observability"
	"github.com/markb/glogin/internal/store"
)

// ErrInvalidRequest is returned when a login call carries no code.
var ErrInvalidRequest = errors.New("invalid auth response received")

// maxRequestBody bounds the JSON body of a login call.
const maxRequestBody = 64 << 10

// AccessGoogleUserRequest is the body of the login function.
type AccessGoogleUserRequest struct {
	Code  string `json:"code"`
	Email string `json:"email,omitempty"`
}

// FunctionResponse carries either the function result or its error.
type FunctionResponse struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// codedError is implemented by errors that carry a structured code and
// message, such as *store.Error.
type codedError interface {
	ErrorCode() int
	ErrorMessage() string
}

// flattenError renders err for clients: "<code> <message>" for coded
// errors, the plain error text otherwise.
func flattenError(err error) string {
	var ce codedError
	if errors.As(err, &ce) {
		return fmt.Sprintf("%d %s", ce.ErrorCode(), ce.ErrorMessage())
	}
	return err.Error()
}

// statusFor maps a login failure to its HTTP status.
func statusFor(err error) int {
	var perr *oauth.ProviderError
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, oauth.ErrMissingCode):
		return http.StatusBadRequest
	case errors.As(err, &perr), errors.Is(err, oauth.ErrMalformedProviderResponse):
		return http.StatusBadGateway
	case errors.Is(err, linking.ErrInvalidProviderClaims):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrAccountCreateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return observability.OutcomeInvalidRequest
	case http.StatusBadGateway:
		return observability.OutcomeProviderError
	case http.StatusUnprocessableEntity:
		return observability.OutcomeInvalidClaims
	default:
		return observability.OutcomeStoreError
	}
}

// login runs the full pipeline: verify the code, resolve the account and
// issue a session credential. The code doubles as the access token kept on
// the account link.
func (s *Server) login(ctx context.Context, code, email string) (string, error) {
	if code == "" {
		return "", ErrInvalidRequest
	}

	start := time.Now()
	claims, err := s.provider.Verify(ctx, code)
	s.metrics().RecordVerify(ctx, time.Since(start), err == nil)
	if err != nil {
		return "", err
	}

	res, err := s.linker.Resolve(ctx, code, claims, email)
	if err != nil {
		return "", err
	}
	s.metrics().RecordLinking(ctx, res.Created, res.RaceLost)

	token, err := s.sessions.IssueSession(ctx, res.Account)
	if err != nil {
		return "", fmt.Errorf("failed to issue session: %w", err)
	}
	return token, nil
}

// handleAccessGoogleUser is the login function called by mobile clients.
// POST /functions/v1/accessGoogleUser {"code": "...", "email": "..."}
func (s *Server) handleAccessGoogleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AccessGoogleUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeFunctionError(w, r, ErrInvalidRequest)
		return
	}

	token, err := s.login(ctx, req.Code, req.Email)
	if err != nil {
		s.writeFunctionError(w, r, err)
		return
	}

	s.metrics().RecordLogin(ctx, observability.OutcomeSuccess)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(FunctionResponse{Result: token})
}

func (s *Server) writeFunctionError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.metrics().RecordLogin(r.Context(), outcomeFor(err))

	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.Error("login failed", "error", err, "status", status)
	} else {
		logger.Warn("login rejected", "error", err, "status", status)
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(FunctionResponse{Error: flattenError(err)})
}
