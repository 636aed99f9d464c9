//go:build !unix

package gphoto2

import "os/exec"

func startProcessGroup(*exec.Cmd) {}

func interruptProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
