package capture_test

import (
	"errors"
	"path/filepath"
	"testing"

	"timelapsebox/internal/capture"
	"timelapsebox/internal/services"
)

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.lock")
	first := capture.NewLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	held, err := capture.LockHeld(path)
	if err != nil || !held {
		t.Fatalf("LockHeld = %v, %v; want true", held, err)
	}
	if err := capture.NewLock(path).Acquire(); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("second Acquire err = %v, want ErrBusy", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	held, err = capture.LockHeld(path)
	if err != nil || held {
		t.Fatalf("LockHeld after release = %v, %v", held, err)
	}
	again := capture.NewLock(path)
	if err := again.Acquire(); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release()
}
