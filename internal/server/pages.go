package server

import (
	"errors"
	"net/http"

	"github.com/markb/glogin/internal/log"
	"github.com/markb/glogin/internal/observability"
	"github.com/markb/glogin/internal/store"
)

const (
	msgSaveAuthRequest = "Failed to save auth request."
	msgInvalidAuth     = "Invalid auth response received."
	msgLoginFailed     = "Login with Google failed."
)

type errorView struct {
	ErrorMessage string
}

type callbackView struct {
	SessionToken string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, view any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, view); err != nil {
		log.FromContext(r.Context()).Error("failed to render template", "template", name, "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", errorView{ErrorMessage: message})
}

// handleIndex renders the login page.
// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", nil)
}

// handleMain renders the signed-in page.
// GET /main
func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "main.html", nil)
}

// handleAuthorize records a pending request and sends the browser to Google
// with the request id as state.
// GET /authorize
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := s.store.CreatePendingRequest(ctx)
	if err != nil {
		log.FromContext(ctx).Error("failed to save auth request", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, msgSaveAuthRequest)
		return
	}
	s.metrics().RecordPendingRequest(ctx)
	log.FromContext(ctx).Debug("pending auth request created", "state", id)

	http.Redirect(w, r, s.provider.AuthURL(id), http.StatusFound)
}

// handleOAuthCallback is where Google sends the browser back. The state must
// name a pending request; the code then runs through the same pipeline as the
// login function and the page stores the session client-side.
// GET /oauth2callback?code=...&state=...
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		log.FromContext(ctx).Warn("provider returned error", "error", errParam)
		s.renderError(w, r, http.StatusBadRequest, msgLoginFailed)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		s.renderError(w, r, http.StatusBadRequest, msgInvalidAuth)
		return
	}

	req, err := s.store.FindPendingRequest(ctx, state)
	if errors.Is(err, store.ErrPendingRequestNotFound) {
		log.FromContext(ctx).Warn("unknown auth request state")
		s.renderError(w, r, http.StatusBadRequest, msgInvalidAuth)
		return
	}
	if err != nil {
		log.FromContext(ctx).Error("failed to load auth request", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, msgLoginFailed)
		return
	}
	if ttl := s.opts.PendingRequestTTL; ttl > 0 && s.now().Sub(req.CreatedAt) > ttl {
		log.FromContext(ctx).Warn("expired auth request state", "created_at", req.CreatedAt)
		s.renderError(w, r, http.StatusBadRequest, msgInvalidAuth)
		return
	}

	// Pending requests are not deleted after use.
	token, err := s.login(ctx, code, "")
	if err != nil {
		status := statusFor(err)
		s.metrics().RecordLogin(ctx, outcomeFor(err))
		log.FromContext(ctx).Warn("browser login failed", "error", err, "status", status)
		s.renderError(w, r, status, flattenError(err))
		return
	}

	s.metrics().RecordLogin(ctx, observability.OutcomeSuccess)
	s.render(w, r, http.StatusOK, "callback.html", callbackView{SessionToken: token})
}
