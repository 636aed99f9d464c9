package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Capture contains configuration for the capture scheduler and the
// gphoto2 adapter.
type Capture struct {
	Binary                 string   `toml:"binary"`
	DurationMinutes        int      `toml:"duration_minutes"`
	ShotCount              int      `toml:"shot_count"`
	TimeoutSeconds         int      `toml:"timeout_seconds"`
	SnapshotConfig         bool     `toml:"snapshot_config"`
	WaitForCameraSeconds   int      `toml:"wait_for_camera_seconds"`
	JPGExtensions          []string `toml:"jpg_extensions"`
	RAWExtensions          []string `toml:"raw_extensions"`
	StaleStagingMaxAgeDays int      `toml:"stale_staging_max_age_days"`
}

// Processing contains configuration for the per-photo post-processing stage.
type Processing struct {
	// Transform selects the per-photo transform: copy, reencode, or command.
	Transform   string `toml:"transform"`
	JPEGQuality int    `toml:"jpeg_quality"`
	// Command is an argv template; {input} and {output} are substituted.
	Command []string `toml:"command"`
}

// Assembly contains configuration for the ffmpeg video assembly stage.
type Assembly struct {
	Binary      string `toml:"binary"`
	FPS         int    `toml:"fps"`
	Quality     int    `toml:"quality"`
	Codec       string `toml:"codec"`
	PixelFormat string `toml:"pixel_format"`
	OutputName  string `toml:"output_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for timelapsebox.
//
// Configuration sections by subsystem:
//   - Paths: session data root and process log directory
//   - Capture: shot schedule defaults and the gphoto2 adapter
//   - Processing: per-photo transform
//   - Assembly: ffmpeg encoding parameters
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Capture    Capture    `toml:"capture"`
	Processing Processing `toml:"processing"`
	Assembly   Assembly   `toml:"assembly"`
	Logging    Logging    `toml:"logging"`
}

const defaultConfigLocation = "~/.config/timelapsebox/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigLocation)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigLocation)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("timelapsebox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the location of the session catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "sessions.db")
}

// LockPath returns the capture lock file guarding a data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "capture.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
