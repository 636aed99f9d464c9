package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timelapsebox/internal/capture"
	"timelapsebox/internal/config"
	"timelapsebox/internal/services/gphoto2"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCaptureLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.lock")
	if got := CheckCaptureLock(path); !got.Passed || got.Detail != "Idle" {
		t.Fatalf("missing lock file: %+v", got)
	}
	lock := capture.NewLock(path)
	if err := lock.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer lock.Release()
	if got := CheckCaptureLock(path); !got.Passed || !strings.HasPrefix(got.Detail, "Running") {
		t.Fatalf("held lock: %+v", got)
	}
}

func TestRunAll(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	cfg.Processing.Transform = config.TransformCommand
	cfg.Processing.Command = []string{"timelapsebox-missing-tool", "{input}", "{output}"}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %+v", results)
	}
	for _, r := range results[:3] {
		if !r.Passed {
			t.Fatalf("%s failed: %s", r.Name, r.Detail)
		}
	}
	if results[3].Passed {
		t.Fatal("expected missing processing command to fail")
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}

type stubDetector struct {
	cameras []gphoto2.Camera
	err     error
}

func (s stubDetector) Detect(context.Context) ([]gphoto2.Camera, error) { return s.cameras, s.err }

func TestProbeCamera(t *testing.T) {
	one := ProbeCamera(context.Background(), stubDetector{cameras: []gphoto2.Camera{{Model: "Canon EOS 80D", Port: "usb:001,004"}}})
	if !one.Detected || one.Detail() != "Canon EOS 80D on usb:001,004" {
		t.Fatalf("unexpected probe %+v / %s", one, one.Detail())
	}
	none := ProbeCamera(context.Background(), stubDetector{})
	if none.Detected || none.Detail() != "No camera detected" {
		t.Fatalf("unexpected probe %+v", none)
	}
	failed := ProbeCamera(context.Background(), stubDetector{err: errors.New("boom")})
	if failed.Detected || !strings.HasPrefix(failed.Detail(), "Detection failed") {
		t.Fatalf("unexpected probe %+v", failed)
	}
}
