package services_test

import (
	"context"
	"testing"

	"timelapsebox/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "run-123")
	ctx = services.WithPhase(ctx, "capture")
	ctx = services.WithAttempt(ctx, 7)

	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "capture" {
		t.Fatalf("unexpected phase: %v %v", phase, ok)
	}
	if attempt, ok := services.AttemptFromContext(ctx); !ok || attempt != 7 {
		t.Fatalf("unexpected attempt: %v %v", attempt, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPhase(ctx, "")
	ctx = services.WithSessionID(ctx, "")
	if _, ok := services.PhaseFromContext(ctx); ok {
		t.Fatal("expected no phase value")
	}
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session id value")
	}
	if _, ok := services.AttemptFromContext(ctx); ok {
		t.Fatal("expected no attempt value")
	}
}
