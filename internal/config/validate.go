package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.DurationMinutes <= 0 {
		return errors.New("capture.duration_minutes must be positive")
	}
	if c.Capture.ShotCount <= 0 {
		return errors.New("capture.shot_count must be positive")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"capture.timeout_seconds":            c.Capture.TimeoutSeconds,
		"capture.wait_for_camera_seconds":    c.Capture.WaitForCameraSeconds,
		"capture.stale_staging_max_age_days": c.Capture.StaleStagingMaxAgeDays,
	}); err != nil {
		return err
	}
	for _, jpg := range c.Capture.JPGExtensions {
		for _, raw := range c.Capture.RAWExtensions {
			if jpg == raw {
				return fmt.Errorf("capture extension %q cannot be both jpg and raw", jpg)
			}
		}
	}
	return nil
}

func (c *Config) validateProcessing() error {
	switch c.Processing.Transform {
	case TransformCopy:
	case TransformReencode:
		if c.Processing.JPEGQuality < 1 || c.Processing.JPEGQuality > 100 {
			return errors.New("processing.jpeg_quality must be between 1 and 100")
		}
	case TransformCommand:
		if len(c.Processing.Command) == 0 {
			return errors.New("processing.command must be set when processing.transform is \"command\"")
		}
		joined := strings.Join(c.Processing.Command, " ")
		if !strings.Contains(joined, "{input}") || !strings.Contains(joined, "{output}") {
			return errors.New("processing.command must reference both {input} and {output}")
		}
	default:
		return fmt.Errorf("processing.transform: unsupported value %q (want copy, reencode, or command)", c.Processing.Transform)
	}
	return nil
}

func (c *Config) validateAssembly() error {
	if err := ValidateEncoding(c.Assembly.FPS, c.Assembly.Quality); err != nil {
		return fmt.Errorf("assembly: %w", err)
	}
	return nil
}

// ValidateEncoding checks a frame rate and CRF quality pair.
func ValidateEncoding(fps, quality int) error {
	if fps <= 0 {
		return errors.New("fps must be positive")
	}
	if quality < 0 || quality > 51 {
		return errors.New("quality must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
