package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"debug", zap.DebugLevel},
		{"  WARN ", zap.WarnLevel},
		{"Error", zap.ErrorLevel},
		{"fatal", zap.InfoLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		if got := levelFromEnv(tt.env); got != tt.want {
			t.Errorf("levelFromEnv(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestNewLogger_Env(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "console")
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zap.WarnLevel) {
		t.Error("LOG_LEVEL=error logger should drop WARN")
	}
	if !logger.Core().Enabled(zap.ErrorLevel) {
		t.Error("LOG_LEVEL=error logger should keep ERROR")
	}
}

func TestNewCLILogger_Levels(t *testing.T) {
	quiet, err := NewCLILogger(false)
	if err != nil {
		t.Fatalf("NewCLILogger(false) error = %v", err)
	}
	if quiet.Core().Enabled(zap.InfoLevel) {
		t.Error("quiet CLI logger should not log INFO")
	}
	verbose, err := NewCLILogger(true)
	if err != nil {
		t.Fatalf("NewCLILogger(true) error = %v", err)
	}
	if !verbose.Core().Enabled(zap.DebugLevel) {
		t.Error("verbose CLI logger should log DEBUG")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if CorrelationID(ctx) != "" {
		t.Error("CorrelationID on empty context should be empty")
	}
	if l := LoggerFromContext(ctx); l == nil || l.Core().Enabled(zap.ErrorLevel) {
		t.Error("LoggerFromContext on empty context should be a no-op logger")
	}

	logger := zap.NewNop()
	ctx = WithLogger(WithCorrelationID(ctx, "abc-123"), logger)
	if got := CorrelationID(ctx); got != "abc-123" {
		t.Errorf("CorrelationID = %q, want abc-123", got)
	}
	if LoggerFromContext(ctx) != logger {
		t.Error("LoggerFromContext did not return stored logger")
	}
}
