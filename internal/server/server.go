// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/acme/autocert"

	"github.com/markb/glogin/internal/auth"
	"github.com/markb/glogin/internal/linking"
	"github.com/markb/glogin/internal/log"
	"github.com/markb/glogin/internal/oauth"
	"github.com/markb/glogin/internal/observability"
	"github.com/markb/glogin/internal/store"
)

// Provider verifies authorization codes and builds the authorization
// redirect.
type Provider interface {
	AuthURL(state string) string
	Verify(ctx context.Context, code string) (*oauth.Claims, error)
}

// PendingStore records and checks authorization requests.
type PendingStore interface {
	CreatePendingRequest(ctx context.Context) (string, error)
	FindPendingRequest(ctx context.Context, id string) (*store.PendingRequest, error)
	CleanupPendingRequests(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is everything the route layer needs from the account store.
type Store interface {
	PendingStore
	linking.Store
}

// Deps are the collaborators the routes are served with.
type Deps struct {
	Store     Store
	Provider  Provider
	Sessions  *auth.Service
	Telemetry *observability.Telemetry
}

// Options tune route behaviour.
type Options struct {
	CORSOrigins []string
	// PendingRequestTTL rejects browser callbacks whose state is older.
	// Zero disables expiry.
	PendingRequestTTL time.Duration
}

type Server struct {
	router    *chi.Mux
	store     Store
	provider  Provider
	linker    *linking.Service
	sessions  *auth.Service
	telemetry *observability.Telemetry
	opts      Options
	now       func() time.Time

	// HTTP server for graceful shutdown
	httpServer *http.Server

	// HTTPS fields
	httpsServer  *http.Server
	httpRedirect *http.Server
	autocertMgr  *autocert.Manager
}

func New(deps Deps, opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{
		router:    chi.NewRouter(),
		store:     deps.Store,
		provider:  deps.Provider,
		linker:    linking.NewService(deps.Store),
		sessions:  deps.Sessions,
		telemetry: deps.Telemetry,
		opts:      opts,
		now:       time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(log.RequestLogger)
	s.router.Use(middleware.Recoverer)
	if s.telemetry != nil {
		s.router.Use(observability.HTTPMiddleware(s.telemetry, "glogin"))
	}

	s.router.Get("/health", s.handleHealth)

	// Browser pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/authorize", s.handleAuthorize)
	s.router.Get("/main", s.handleMain)
	s.router.Get("/oauth2callback", s.handleOAuthCallback)

	// Mobile clients call the login function directly.
	s.router.Route("/functions/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{log.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Post("/accessGoogleUser", s.handleAccessGoogleUser)
	})

	s.router.Route("/auth/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/user", s.handleGetUser)
		})
	})
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) metrics() *observability.Metrics {
	if s.telemetry == nil {
		return nil
	}
	return s.telemetry.Metrics()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server(s).
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTPS server: %w", err))
		}
	}

	if s.httpRedirect != nil {
		if err := s.httpRedirect.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP redirect server: %w", err))
		}
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// StartPendingSweeper deletes expired authorization requests every interval
// until ctx is done. It does nothing when no TTL is configured.
func (s *Server) StartPendingSweeper(ctx context.Context, interval time.Duration) {
	if s.opts.PendingRequestTTL <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepPendingRequests(ctx)
			}
		}
	}()
	log.Info("pending request sweeper started", "ttl", s.opts.PendingRequestTTL, "interval", interval)
}

func (s *Server) sweepPendingRequests(ctx context.Context) int64 {
	n, err := s.store.CleanupPendingRequests(ctx, s.now().Add(-s.opts.PendingRequestTTL))
	if err != nil {
		log.Error("failed to clean up pending requests", "error", err)
		return 0
	}
	if n > 0 {
		log.Info("cleaned up expired pending requests", "count", n)
	}
	return n
}
