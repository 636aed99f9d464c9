package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "#!/bin/sh\nexit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only required missing binary, got %#v", missing)
	}
}

func TestCheckReadsVersion(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := writeStub(t, binDir, "ffmpeg", "#!/bin/sh\necho\necho 'ffmpeg version 7.1 Copyright (c)'\n")

	status := Check(Encoder(ffmpeg))
	if !status.Available {
		t.Fatalf("expected ffmpeg stub available: %#v", status)
	}
	if status.Version != "ffmpeg version 7.1 Copyright (c)" {
		t.Fatalf("unexpected version line: %q", status.Version)
	}
}

func TestCheckVersionFailureStillAvailable(t *testing.T) {
	binDir := t.TempDir()
	gphoto := writeStub(t, binDir, "gphoto2", "#!/bin/sh\nexit 3\n")

	status := Check(CaptureTool(gphoto))
	if !status.Available {
		t.Fatalf("binary on disk should count as available: %#v", status)
	}
	if status.Version != "" {
		t.Fatalf("expected empty version on probe failure, got %q", status.Version)
	}
}
