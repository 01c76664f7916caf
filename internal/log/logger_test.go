// internal/log/logger_test.go
package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected format 'text', got %q", cfg.Format)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  int // slog.Level value
	}{
		{"debug", -4},
		{"info", 0},
		{"warn", 4},
		{"WARNING", 4},
		{"error", 8},
		{"invalid", 0}, // defaults to info
	}
	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if int(got) != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestInit_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(&Config{Level: "debug", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("account created", "account_id", "a1")

	if !strings.Contains(buf.String(), `"account_id":"a1"`) {
		t.Errorf("expected JSON attribute in output, got %q", buf.String())
	}
}

func TestFromContext_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(&Config{Level: "info", Format: "text", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx := context.WithValue(context.Background(), RequestIDKey, "abcd1234")
	FromContext(ctx).Info("token updated")

	if !strings.Contains(buf.String(), "request_id=abcd1234") {
		t.Errorf("expected request id in output, got %q", buf.String())
	}

	buf.Reset()
	FromContext(context.Background()).Info("no id")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("expected no request id, got %q", buf.String())
	}
}
