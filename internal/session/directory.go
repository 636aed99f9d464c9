package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timelapsebox/internal/services"
)

const (
	// Prefix starts every session directory name.
	Prefix     = "series_"
	nameLayout = "2006-01-02_15-04-05"

	TempDir      = "temp"
	JPGDir       = "jpg"
	RAWDir       = "raw"
	ProcessedDir = "processed"
	OutputDir    = "output"

	// ConfigSnapshotName holds the camera configuration dump taken at session start.
	ConfigSnapshotName = "camera_config.txt"
)

var layout = []string{TempDir, JPGDir, RAWDir, ProcessedDir, OutputDir}

// Directory is a session directory on disk.
type Directory struct {
	Path string
}

func (d Directory) Name() string           { return filepath.Base(d.Path) }
func (d Directory) Temp() string           { return filepath.Join(d.Path, TempDir) }
func (d Directory) JPG() string            { return filepath.Join(d.Path, JPGDir) }
func (d Directory) RAW() string            { return filepath.Join(d.Path, RAWDir) }
func (d Directory) Processed() string      { return filepath.Join(d.Path, ProcessedDir) }
func (d Directory) Output() string         { return filepath.Join(d.Path, OutputDir) }
func (d Directory) ConfigSnapshot() string { return filepath.Join(d.Path, ConfigSnapshotName) }

// DirectoryName returns the session directory name for a start time, using
// the local wall clock.
func DirectoryName(start time.Time) string {
	return Prefix + start.Local().Format(nameLayout)
}

// ParseStart recovers the local start time encoded in a session directory name.
func ParseStart(name string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(filepath.Base(name), Prefix)
	if !ok || len(rest) < len(nameLayout) {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(nameLayout, rest[:len(nameLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// EnsureLayout creates path and every session subdirectory. It is idempotent
// and leaves existing content untouched.
func EnsureLayout(path string) (Directory, error) {
	if strings.TrimSpace(path) == "" {
		return Directory{}, services.Wrap(services.ErrFilesystem, "session", "layout", "directory path is empty", nil)
	}
	dir := Directory{Path: path}
	for _, sub := range layout {
		if err := os.MkdirAll(filepath.Join(path, sub), 0o755); err != nil {
			return Directory{}, services.Wrap(services.ErrFilesystem, "session", "layout", fmt.Sprintf("create %s", sub), err)
		}
	}
	return dir, nil
}

// StagingDir returns (creating it) the private staging folder for one capture
// attempt, temp/attempt-NNNN.
func (d Directory) StagingDir(attempt int) (string, error) {
	path := filepath.Join(d.Temp(), fmt.Sprintf("attempt-%04d", attempt))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "session", "staging", "create attempt staging directory", err)
	}
	return path, nil
}
