package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"timelapsebox/internal/services"
)

func TestArgsMatchEncoderContract(t *testing.T) {
	cli := NewCLI()
	got := cli.Args(Request{InputPattern: "/s/processed/processed_*.jpg", OutputPath: "/s/output/timelapse.mp4", FPS: 24, Quality: 23})
	want := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-framerate", "24",
		"-pattern_type", "glob",
		"-i", "/s/processed/processed_*.jpg",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", "23",
		"-progress", "pipe:1", "-nostats",
		"/s/output/timelapse.mp4",
	}
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") {
		t.Fatalf("unexpected args:\n got %q\nwant %q", got, want)
	}
}

func TestWithOptions(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/ffmpeg"), WithCodec("libx265", ""))
	if cli.Binary() != "/opt/ffmpeg" || cli.codec != "libx265" || cli.pixelFormat != "yuv420p" {
		t.Fatalf("unexpected options applied: %+v", cli)
	}
}

func TestAssembleValidatesRequest(t *testing.T) {
	cli := NewCLI()
	tests := []Request{
		{OutputPath: "/o.mp4", FPS: 24, Quality: 23},
		{InputPattern: "*.jpg", FPS: 24, Quality: 23},
		{InputPattern: "*.jpg", OutputPath: "/o.mp4", FPS: 0, Quality: 23},
		{InputPattern: "*.jpg", OutputPath: "/o.mp4", FPS: 24, Quality: 52},
	}
	for i, req := range tests {
		if _, err := cli.Assemble(context.Background(), req); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("case %d: expected configuration error, got %v", i, err)
		}
	}
}

func TestAssembleSuccessReportsProgress(t *testing.T) {
	output := filepath.Join(t.TempDir(), "timelapse.mp4")
	stubCommand(t, "success", output)

	var updates []ProgressUpdate
	path, err := NewCLI().Assemble(context.Background(), Request{
		InputPattern: "/frames/*.jpg",
		OutputPath:   output,
		FPS:          24,
		Quality:      23,
		TotalFrames:  48,
		Progress:     func(u ProgressUpdate) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if path != output {
		t.Fatalf("unexpected output path %q", path)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %+v", updates)
	}
	if updates[0].Frame != 24 || updates[0].Percent != 50 {
		t.Fatalf("unexpected first update %+v", updates[0])
	}
	if !updates[1].Done || updates[1].Percent != 100 {
		t.Fatalf("unexpected final update %+v", updates[1])
	}
}

func TestAssembleFailureIsEncodingError(t *testing.T) {
	output := filepath.Join(t.TempDir(), "timelapse.mp4")
	if err := os.WriteFile(output, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	stubCommand(t, "failure", output)

	_, err := NewCLI().Assemble(context.Background(), Request{InputPattern: "/frames/*.jpg", OutputPath: output, FPS: 24, Quality: 23})
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	if !strings.Contains(err.Error(), "No such file or directory") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatal("expected partial output removed")
	}
}

func stubCommand(t *testing.T, mode, output string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode),
			fmt.Sprintf("FFMPEG_HELPER_OUTPUT=%s", output),
		)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		fmt.Println("frame=24")
		fmt.Println("fps=0.0")
		fmt.Println("progress=continue")
		fmt.Println("frame=48")
		fmt.Println("progress=end")
		_ = os.WriteFile(os.Getenv("FFMPEG_HELPER_OUTPUT"), []byte("mp4"), 0o644)
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "/frames/*.jpg: No such file or directory")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
