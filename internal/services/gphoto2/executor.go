package gphoto2

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result carries the captured output of one gphoto2 (or shell) invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// killGrace is how long a cancelled gphoto2 gets to release the USB device
// after its process group receives SIGINT before it is killed.
const killGrace = 3 * time.Second

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	startProcessGroup(cmd)
	cmd.Cancel = func() error { return interruptProcess(cmd) }
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if err != nil && ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, err
}
