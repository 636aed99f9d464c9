package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeProcessing()
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Binary = strings.TrimSpace(c.Capture.Binary)
	if c.Capture.Binary == "" {
		c.Capture.Binary = defaultCaptureBinary
	}
	c.Capture.JPGExtensions = normalizeExtensions(c.Capture.JPGExtensions)
	if len(c.Capture.JPGExtensions) == 0 {
		c.Capture.JPGExtensions = defaultJPGExtensions()
	}
	c.Capture.RAWExtensions = normalizeExtensions(c.Capture.RAWExtensions)
	if len(c.Capture.RAWExtensions) == 0 {
		c.Capture.RAWExtensions = defaultRAWExtensions()
	}
}

func (c *Config) normalizeProcessing() {
	c.Processing.Transform = strings.ToLower(strings.TrimSpace(c.Processing.Transform))
	if c.Processing.Transform == "" {
		c.Processing.Transform = defaultTransform
	}
	if c.Processing.JPEGQuality == 0 {
		c.Processing.JPEGQuality = defaultJPEGQuality
	}
	cmd := c.Processing.Command[:0]
	for _, arg := range c.Processing.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			cmd = append(cmd, trimmed)
		}
	}
	c.Processing.Command = cmd
}

func (c *Config) normalizeAssembly() {
	c.Assembly.Binary = strings.TrimSpace(c.Assembly.Binary)
	if c.Assembly.Binary == "" {
		c.Assembly.Binary = defaultAssemblyBinary
	}
	c.Assembly.Codec = strings.TrimSpace(c.Assembly.Codec)
	if c.Assembly.Codec == "" {
		c.Assembly.Codec = defaultCodec
	}
	c.Assembly.PixelFormat = strings.TrimSpace(c.Assembly.PixelFormat)
	if c.Assembly.PixelFormat == "" {
		c.Assembly.PixelFormat = defaultPixelFormat
	}
	c.Assembly.OutputName = filepath.Base(strings.TrimSpace(c.Assembly.OutputName))
	if c.Assembly.OutputName == "" || c.Assembly.OutputName == "." || c.Assembly.OutputName == string(filepath.Separator) {
		c.Assembly.OutputName = defaultOutputName
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level

	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func normalizeExtensions(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
