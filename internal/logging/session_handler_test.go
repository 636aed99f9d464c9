package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var timeZero time.Time

func TestSessionIDHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "run-123")).With("extra", "value")
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"run-123"`) {
		t.Errorf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestSessionIDHandlerKeepsExplicitID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "run-123"))
	logger.Info("test message", slog.String(FieldSessionID, "override"))

	output := buf.String()
	if strings.Count(output, FieldSessionID) != 1 {
		t.Fatalf("expected exactly one session_id, got: %s", output)
	}
	if !strings.Contains(output, `"session_id":"override"`) {
		t.Fatalf("expected explicit session_id to win, got: %s", output)
	}
}

func TestSessionIDHandlerEdgeCases(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "run").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	if h := newSessionIDHandler(base, ""); h != base {
		t.Error("expected base handler returned for empty session id")
	}
}
