package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("svc", "loud"); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestNewLogger_DebugLevel(t *testing.T) {
	logger, err := NewLogger("svc", "debug")
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
}

func TestWithRequestAndUserID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := WithUserID(WithRequestID(zap.New(core), "req-1"), 42)

	logger.Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", fields["request_id"])
	}
	if fields["user_id"] != int64(42) {
		t.Errorf("user_id = %v, want 42", fields["user_id"])
	}
}
