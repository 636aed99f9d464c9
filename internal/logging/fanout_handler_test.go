package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, NoopHandler{}, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when no live handlers remain")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single live handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug when any handler accepts it")
	}

	slog.New(h).Debug("debug only message")
	if infoBuf.Len() != 0 {
		t.Error("info handler should not receive debug messages")
	}
	if debugBuf.Len() == 0 {
		t.Error("debug handler should receive debug messages")
	}
}

func TestFanoutHandlerWithAttrsAndGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("key", "value")}).WithGroup("shot"))
	logger.Info("test", slog.Int("seq", 3))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"key":"value"`)) {
			t.Errorf("buffer %d missing attr: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"shot":{"seq":3}`)) {
			t.Errorf("buffer %d missing group: %s", i, buf.String())
		}
	}
}

type failingHandler struct{ NoopHandler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanoutHandlerContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	h := newFanoutHandler(failingHandler{}, slog.NewJSONHandler(&buf, nil))

	err := h.Handle(context.Background(), slog.NewRecord(timeZero, slog.LevelInfo, "still written", 0))
	if err == nil {
		t.Fatal("expected error from failing handler")
	}
	if buf.Len() == 0 {
		t.Fatal("expected later handler to receive the record")
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))

	TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil)).Info("teed message")
	if baseBuf.Len() == 0 || teeBuf.Len() == 0 {
		t.Fatalf("expected output in both buffers, base=%d tee=%d", baseBuf.Len(), teeBuf.Len())
	}

	teeBuf.Reset()
	TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil)).Info("no base")
	if teeBuf.Len() == 0 {
		t.Fatal("expected output in tee buffer without base")
	}
}
