package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		GoogleClientID:  "abc",
		JWTSecret:       strings.Repeat("s", MinJWTSecretLength),
		ProviderTimeout: 10 * time.Second,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Zero(t, cfg.PendingRequestTTL)
	assert.Equal(t, "https://www.googleapis.com/oauth2/v1/userinfo", cfg.GoogleValidateURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "none", cfg.OTelExporter)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GLOGIN_PORT", "9090")
	t.Setenv("GLOGIN_GOOGLE_CLIENT_ID", "client-1")
	t.Setenv("GLOGIN_PROVIDER_TIMEOUT", "3s")
	t.Setenv("GLOGIN_PENDING_REQUEST_TTL", "15m")
	t.Setenv("GLOGIN_CORS_ORIGINS", "https://a.test,https://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "client-1", cfg.GoogleClientID)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 15*time.Minute, cfg.PendingRequestTTL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("GLOGIN_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing client id", mutate: func(c *Config) { c.GoogleClientID = "" }, wantErr: ErrMissingClientID},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: ErrWeakJWTSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDurations(t *testing.T) {
	cfg := validConfig()
	cfg.ProviderTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.PendingRequestTTL = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidateTelemetry(t *testing.T) {
	cfg := validConfig()
	cfg.OTelExporter = "jaeger"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OTelExporter = "otlp"
	cfg.OTelSampleRate = 1.5
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OTelExporter = "otlp"
	cfg.OTelSampleRate = 1
	assert.NoError(t, cfg.Validate())
}

func TestRedirectURL(t *testing.T) {
	cfg := &Config{BaseURL: "https://login.example.com"}
	assert.Equal(t, "https://login.example.com/oauth2callback", cfg.RedirectURL())

	cfg.GoogleRedirectURL = "https://other.example.com/cb"
	assert.Equal(t, "https://other.example.com/cb", cfg.RedirectURL())
}

func TestDerivedConfigs(t *testing.T) {
	cfg := validConfig()
	cfg.BaseURL = "http://localhost:8080"
	cfg.GoogleValidateURL = "http://idp.test/userinfo"
	cfg.LogLevel = "debug"
	cfg.OTelExporter = "stdout"
	cfg.Host = "127.0.0.1"
	cfg.Port = 9000

	o := cfg.OAuth()
	assert.Equal(t, "abc", o.ClientID)
	assert.Equal(t, "http://idp.test/userinfo", o.ValidateURL)
	assert.Equal(t, "http://localhost:8080/oauth2callback", o.RedirectURL)

	assert.Equal(t, "debug", cfg.Log().Level)

	tel := cfg.Telemetry()
	assert.Equal(t, "stdout", tel.Exporter)
	assert.True(t, tel.ShouldEnable())
	assert.Equal(t, "glogin", tel.ServiceName)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}
