package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{format: "text", want: []string{"msg=\"pending auth request created\"", "state=abc", "service=glogin"}},
		{format: "json", want: []string{`"msg":"pending auth request created"`, `"state":"abc"`, `"service":"glogin"`}},
		{format: "", want: []string{"state=abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewConsoleHandler(&buf, &Config{Format: tt.format}, slog.LevelInfo))
			logger.Info("pending auth request created", "state", "abc")

			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("expected %q in %q", w, buf.String())
				}
			}
		})
	}
}

func TestConsoleHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, &Config{Format: "text"}, slog.LevelWarn))

	logger.Info("token unchanged")
	logger.Warn("account link race lost")

	output := buf.String()
	if strings.Contains(output, "token unchanged") {
		t.Errorf("info message should be filtered out at warn level")
	}
	if !strings.Contains(output, "account link race lost") {
		t.Errorf("warn message should appear")
	}
	if strings.Contains(output, "source=") {
		t.Errorf("call site should only be recorded at debug level, got %q", output)
	}
}

func TestConsoleHandlerDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, &Config{Format: "text"}, slog.LevelDebug))
	logger.Debug("verifying code")

	if !strings.Contains(buf.String(), "source=") {
		t.Errorf("expected call site at debug level, got %q", buf.String())
	}
}
