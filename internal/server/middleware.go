// internal/server/middleware.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/markb/glogin/internal/store"
)

type contextKey string

const (
	AccountContextKey contextKey = "account"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, errCode, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// authMiddleware resolves the bearer session token to its account.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, http.StatusUnauthorized, "no_authorization", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			s.writeError(w, http.StatusUnauthorized, "invalid_authorization", "Invalid authorization header format")
			return
		}

		account, err := s.sessions.Become(r.Context(), parts[1])
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetAccountFromContext(r *http.Request) *store.Account {
	account, _ := r.Context().Value(AccountContextKey).(*store.Account)
	return account
}

// handleGetUser returns the account behind the session token.
// GET /auth/v1/user
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)
	if account == nil {
		s.writeError(w, http.StatusUnauthorized, "not_authenticated", "Not authenticated")
		return
	}
	json.NewEncoder(w).Encode(account)
}
