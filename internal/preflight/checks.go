package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"timelapsebox/internal/capture"
	"timelapsebox/internal/config"
	"timelapsebox/internal/deps"
	"timelapsebox/internal/services/gphoto2"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCaptureLock reports whether a capture session currently holds the
// data directory. A held lock is not a failure; it only blocks a second
// capture.
func CheckCaptureLock(path string) Result {
	const name = "Capture session"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: "Idle"}
	}
	held, err := capture.LockHeld(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("lock check failed (%v)", err)}
	}
	if held {
		return Result{Name: name, Passed: true, Detail: "Running (" + path + ")"}
	}
	return Result{Name: name, Passed: true, Detail: "Idle"}
}

// CheckCommand verifies an external program is on PATH.
func CheckCommand(name, command string) Result {
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckSystemDeps evaluates the external programs timelapsebox shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		deps.CaptureTool(cfg.Capture.Binary),
		deps.Encoder(cfg.Assembly.Binary),
	})
}

// CameraProbe reports the cameras gphoto2 can see.
type CameraProbe struct {
	Detected bool
	Cameras  []gphoto2.Camera
	Err      error
}

// Detector is the subset of the gphoto2 client ProbeCamera needs.
type Detector interface {
	Detect(ctx context.Context) ([]gphoto2.Camera, error)
}

// ProbeCamera asks gphoto2 for connected cameras with a short timeout.
func ProbeCamera(ctx context.Context, detector Detector) CameraProbe {
	if detector == nil {
		return CameraProbe{}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cameras, err := detector.Detect(ctx)
	if err != nil {
		return CameraProbe{Err: err}
	}
	return CameraProbe{Detected: len(cameras) > 0, Cameras: cameras}
}

// Detail renders a display-friendly summary for status UIs.
func (p CameraProbe) Detail() string {
	switch {
	case p.Err != nil:
		return fmt.Sprintf("Detection failed (%v)", p.Err)
	case !p.Detected:
		return "No camera detected"
	case len(p.Cameras) == 1:
		return fmt.Sprintf("%s on %s", p.Cameras[0].Model, p.Cameras[0].Port)
	default:
		return fmt.Sprintf("%d cameras; using %s on %s", len(p.Cameras), p.Cameras[0].Model, p.Cameras[0].Port)
	}
}
