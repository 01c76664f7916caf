// cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markb/glogin/internal/auth"
	"github.com/markb/glogin/internal/config"
	"github.com/markb/glogin/internal/log"
	"github.com/markb/glogin/internal/oauth"
	"github.com/markb/glogin/internal/observability"
	"github.com/markb/glogin/internal/server"
	"github.com/markb/glogin/internal/store"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the login server",
	Long: `Starts the HTTP server with the login pages, the accessGoogleUser
function and the session endpoint.

Settings come from GLOGIN_* environment variables; flags override them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyServeFlags(cmd, cfg)

		if err := log.Init(cfg.Log()); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tel, cleanup, err := observability.Init(ctx, cfg.Telemetry())
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer cleanup()

		database, err := openDatabase(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()

		st := store.New(database.Privileged())
		provider := oauth.NewGoogleProvider(cfg.OAuth(), &http.Client{Timeout: cfg.ProviderTimeout})
		sessions := auth.NewService(st, cfg.JWTSecret, cfg.BaseURL+"/auth/v1")

		srv := server.New(server.Deps{
			Store:     st,
			Provider:  provider,
			Sessions:  sessions,
			Telemetry: tel,
		}, server.Options{
			CORSOrigins:       cfg.CORSOrigins,
			PendingRequestTTL: cfg.PendingRequestTTL,
		})
		srv.StartPendingSweeper(ctx, cfg.SweepInterval)

		errCh := make(chan error, 1)
		go func() {
			errCh <- listen(srv, cfg)
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func listen(srv *server.Server, cfg *config.Config) error {
	addr := cfg.Addr()
	if cfg.TLSDomain != "" {
		log.Info("starting glogin with HTTPS",
			"addr", addr,
			"domain", cfg.TLSDomain,
			"http_addr", cfg.TLSHTTPAddr,
			"redirect_url", cfg.RedirectURL(),
		)
		return srv.ListenAndServeTLS(addr, server.HTTPSConfig{
			Domain:   cfg.TLSDomain,
			CertDir:  cfg.TLSCertDir,
			HTTPAddr: cfg.TLSHTTPAddr,
		})
	}

	log.Info("starting glogin",
		"addr", addr,
		"base_url", cfg.BaseURL,
		"redirect_url", cfg.RedirectURL(),
		"otel_exporter", cfg.OTelExporter,
	)
	return srv.ListenAndServe(addr)
}

// applyServeFlags overrides environment settings with flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("otel-exporter") {
		cfg.OTelExporter, _ = flags.GetString("otel-exporter")
	}
	if flags.Changed("https") {
		cfg.TLSDomain, _ = flags.GetString("https")
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("base-url", "", "Externally visible origin used for the redirect URL")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	serveCmd.Flags().String("log-format", "", "Log format: text or json")
	serveCmd.Flags().String("otel-exporter", "", "Telemetry exporter: none, stdout or otlp")
	serveCmd.Flags().String("https", "", "Domain to serve over HTTPS with Let's Encrypt")
}
