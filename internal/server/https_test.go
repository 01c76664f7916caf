package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
		errMsg  string
	}{
		// Valid domains
		{"example.com", false, ""},
		{"sub.example.com", false, ""},
		{"login.my-app.example.com", false, ""},

		// Invalid: empty
		{"", true, "domain required"},

		// Invalid: localhost
		{"localhost", true, "public domain"},
		{"LOCALHOST", true, "public domain"},

		// Invalid: IP addresses
		{"127.0.0.1", true, "domain name, not an IP"},
		{"192.168.1.1", true, "domain name, not an IP"},
		{"::1", true, "domain name, not an IP"},
		{"2001:db8::1", true, "domain name, not an IP"},

		// Invalid: malformed
		{"example..com", true, "invalid domain"},
		{".example.com", true, "invalid domain"},
		{"example.com.", true, "invalid domain"},
		{"-example.com", true, "invalid domain"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if tt.wantErr {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPRedirectHandler(t *testing.T) {
	h := HTTPRedirectHandler("login.example.com")

	req := httptest.NewRequest("GET", "http://login.example.com/authorize?x=1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://login.example.com/authorize?x=1", w.Header().Get("Location"))
}

func TestListenAndServeTLSRejectsLocalhost(t *testing.T) {
	srv, _ := setupTestServer(t)

	err := srv.ListenAndServeTLS(":0", HTTPSConfig{Domain: "localhost", CertDir: t.TempDir(), HTTPAddr: ":0"})
	assert.Error(t, err)
}

func TestNewTLSConfigEnablesHTTP2(t *testing.T) {
	cfg := NewTLSConfig(NewAutocertManager("login.example.com", t.TempDir()))
	assert.Contains(t, cfg.NextProtos, "h2")
	assert.NotNil(t, cfg.GetCertificate)
}
