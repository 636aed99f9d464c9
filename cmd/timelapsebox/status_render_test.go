package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"timelapsebox/internal/deps"
	"timelapsebox/internal/preflight"
	"timelapsebox/internal/services/gphoto2"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Camera", statusError, "Not connected", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Camera:", "[ERROR] Not connected")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Camera", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderSectionHeaderTitleCases(t *testing.T) {
	lines := renderSectionHeader("capture phase", false)
	if lines[0] != "== Capture Phase ==" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header %d", len(lines[1]), len(lines[0]))
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "gphoto2", Command: "gphoto2", Available: false, Detail: `binary "gphoto2" not found`},
		{Name: "ffmpeg", Command: "ffmpeg", Available: true, Version: "ffmpeg version 6.1"},
		{Name: "exiftool", Command: "exiftool", Available: false, Optional: true},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], `[ERROR] binary "gphoto2" not found`) {
		t.Fatalf("expected error detail first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (ffmpeg version 6.1)") {
		t.Fatalf("expected version detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not available") {
		t.Fatalf("expected optional warning, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "gphoto2, exiftool") {
		t.Fatalf("expected missing summary, got %q", lines[3])
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Data directory", Passed: true, Detail: "/data (read/write ok)"},
		{Name: "Log directory", Detail: "/logs (error: does not exist)"},
	}, false)
	if !strings.Contains(lines[0], "[OK]") || !strings.Contains(lines[1], "[ERROR]") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestCameraStatusLine(t *testing.T) {
	found := cameraStatusLine(preflight.CameraProbe{Detected: true, Cameras: []gphoto2.Camera{{Model: "Canon EOS 80D", Port: "usb:001,004"}}}, false)
	if !strings.Contains(found, "[OK] Canon EOS 80D on usb:001,004") {
		t.Fatalf("unexpected line %q", found)
	}
	missing := cameraStatusLine(preflight.CameraProbe{}, false)
	if !strings.Contains(missing, "[WARN] No camera detected") {
		t.Fatalf("unexpected line %q", missing)
	}
	failed := cameraStatusLine(preflight.CameraProbe{Err: errors.New("boom")}, false)
	if !strings.Contains(failed, "[WARN] Detection failed") {
		t.Fatalf("unexpected line %q", failed)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
