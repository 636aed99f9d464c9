//go:build unix

package gphoto2

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCommandExecutorCancelInterruptsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The sleep inherits stdout, so Run only returns before killGrace when the
	// interrupt reaches the whole group and not just the shell.
	start := time.Now()
	_, err := commandExecutor{}.Run(ctx, "/bin/sh", []string{"-c", "sleep 30; echo done"})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed >= killGrace {
		t.Fatalf("run took %s, child outlived the interrupt", elapsed)
	}
}

func TestCommandExecutorReportsExitCode(t *testing.T) {
	result, err := commandExecutor{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo out; echo err >&2; exit 3"})
	if err == nil {
		t.Fatal("expected exit error")
	}
	if result.ExitCode != 3 {
		t.Fatalf("exit code = %d", result.ExitCode)
	}
	if string(result.Stdout) != "out\n" || string(result.Stderr) != "err\n" {
		t.Fatalf("unexpected output %q / %q", result.Stdout, result.Stderr)
	}
}
