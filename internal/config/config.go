// Package config loads glogin settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/markb/glogin/internal/log"
	"github.com/markb/glogin/internal/oauth"
	"github.com/markb/glogin/internal/observability"
)

// MinJWTSecretLength is the minimum accepted size of the session signing key.
const MinJWTSecretLength = 32

var (
	ErrMissingClientID = errors.New("google client id is required (GLOGIN_GOOGLE_CLIENT_ID)")
	ErrWeakJWTSecret   = fmt.Errorf("jwt secret must be at least %d bytes (GLOGIN_JWT_SECRET)", MinJWTSecretLength)
)

// Config is the full runtime configuration. Values come from GLOGIN_*
// environment variables; command line flags override them.
type Config struct {
	DBPath string `env:"GLOGIN_DB" envDefault:"data.db"`
	Host   string `env:"GLOGIN_HOST" envDefault:"0.0.0.0"`
	Port   int    `env:"GLOGIN_PORT" envDefault:"8080"`

	// BaseURL is the externally visible origin, used for the default
	// redirect URL and the session token issuer.
	BaseURL   string `env:"GLOGIN_BASE_URL" envDefault:"http://localhost:8080"`
	JWTSecret string `env:"GLOGIN_JWT_SECRET"`

	GoogleClientID     string `env:"GLOGIN_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GLOGIN_GOOGLE_CLIENT_SECRET"`
	GoogleAuthorizeURL string `env:"GLOGIN_GOOGLE_AUTHORIZE_URL"`
	GoogleValidateURL  string `env:"GLOGIN_GOOGLE_VALIDATE_URL" envDefault:"https://www.googleapis.com/oauth2/v1/userinfo"`
	GoogleRedirectURL  string `env:"GLOGIN_GOOGLE_REDIRECT_URL"`

	ProviderTimeout   time.Duration `env:"GLOGIN_PROVIDER_TIMEOUT" envDefault:"10s"`
	PendingRequestTTL time.Duration `env:"GLOGIN_PENDING_REQUEST_TTL" envDefault:"0"`
	SweepInterval     time.Duration `env:"GLOGIN_SWEEP_INTERVAL" envDefault:"10m"`

	CORSOrigins []string `env:"GLOGIN_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// TLSDomain enables HTTPS with Let's Encrypt certificates when set.
	TLSDomain   string `env:"GLOGIN_TLS_DOMAIN"`
	TLSCertDir  string `env:"GLOGIN_TLS_CERT_DIR" envDefault:"certs"`
	TLSHTTPAddr string `env:"GLOGIN_TLS_HTTP_ADDR" envDefault:":80"`

	LogLevel  string `env:"GLOGIN_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GLOGIN_LOG_FORMAT" envDefault:"text"`

	OTelExporter   string  `env:"GLOGIN_OTEL_EXPORTER" envDefault:"none"`
	OTelEndpoint   string  `env:"GLOGIN_OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRate float64 `env:"GLOGIN_OTEL_SAMPLE_RATE" envDefault:"0.1"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	if c.GoogleClientID == "" {
		return ErrMissingClientID
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return ErrWeakJWTSecret
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %s", c.ProviderTimeout)
	}
	if c.PendingRequestTTL < 0 {
		return fmt.Errorf("pending request ttl must not be negative, got %s", c.PendingRequestTTL)
	}
	if err := c.Telemetry().Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedirectURL is the browser callback URL registered with Google.
func (c *Config) RedirectURL() string {
	if c.GoogleRedirectURL != "" {
		return c.GoogleRedirectURL
	}
	return c.BaseURL + "/oauth2callback"
}

// OAuth returns the provider configuration.
func (c *Config) OAuth() oauth.Config {
	return oauth.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.RedirectURL(),
		AuthorizeURL: c.GoogleAuthorizeURL,
		ValidateURL:  c.GoogleValidateURL,
	}
}

// Log returns the logging configuration.
func (c *Config) Log() *log.Config {
	return &log.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// Telemetry returns the OpenTelemetry configuration.
func (c *Config) Telemetry() *observability.Config {
	cfg := observability.NewConfig()
	cfg.Exporter = c.OTelExporter
	cfg.Endpoint = c.OTelEndpoint
	cfg.SampleRate = c.OTelSampleRate
	cfg.MetricsEnabled = cfg.ShouldEnable()
	cfg.TracesEnabled = cfg.ShouldEnable()
	return cfg
}
