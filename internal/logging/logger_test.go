// Package logging includes tests for the zap logger helpers.
package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true, "page-analyzer")
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false, "")
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	scoped := zap.New(core).With(zap.String("request_id", "abc"))
	ctx := IntoContext(context.Background(), scoped)

	FromContext(ctx, zap.NewNop()).Info("hello")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["request_id"]; got != "abc" {
		t.Fatalf("expected request_id field, got %v", got)
	}
}

func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	if FromContext(context.Background(), fallback) != fallback {
		t.Fatal("expected fallback logger")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger when fallback is nil")
	}
}
