package gphoto2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
)

// FilenameTemplate is the gphoto2 --filename pattern used inside a staging
// folder: capt0000.jpg, capt0001.cr2, ...
const FilenameTemplate = "capt%04n.%C"

// Asset names the files one capture produced. Either path may be empty.
type Asset struct {
	JPG string
	RAW string
}

// Camera is one entry of gphoto2 --auto-detect.
type Camera struct {
	Model string
	Port  string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout bounds each capture invocation. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExtensions overrides which file extensions count as JPG and RAW assets.
func WithExtensions(jpg, raw []string) Option {
	return func(c *Client) {
		if len(jpg) > 0 {
			c.jpgExts = extensionSet(jpg)
		}
		if len(raw) > 0 {
			c.rawExts = extensionSet(raw)
		}
	}
}

// WithShell sets the shell used by the last config dump fallback.
func WithShell(shell string) Option {
	return func(c *Client) {
		if shell = strings.TrimSpace(shell); shell != "" {
			c.shell = shell
		}
	}
}

// WithLogger attaches a logger for adapter diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "gphoto2")
	}
}

// Client wraps gphoto2 CLI interactions.
type Client struct {
	binary  string
	shell   string
	timeout time.Duration
	exec    Executor
	jpgExts map[string]struct{}
	rawExts map[string]struct{}
	logger  *slog.Logger
}

// New constructs a gphoto2 client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("gphoto2 binary required")
	}
	client := &Client{
		binary:  binary,
		shell:   "sh",
		exec:    commandExecutor{},
		jpgExts: extensionSet([]string{".jpg", ".jpeg"}),
		rawExts: extensionSet([]string{".cr2", ".cr3", ".nef", ".arw", ".raf", ".dng", ".orf", ".rw2"}),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured gphoto2 executable.
func (c *Client) Binary() string { return c.binary }

// Capture triggers one shutter release and downloads the result into
// stagingDir, which must exist and belong to this attempt alone. It fails
// with services.ErrCapture when gphoto2 exits non-zero and with
// services.ErrNoAsset when it succeeds without leaving a JPG or RAW file.
func (c *Client) Capture(ctx context.Context, stagingDir string) (Asset, error) {
	if strings.TrimSpace(stagingDir) == "" {
		return Asset{}, services.Wrap(services.ErrCapture, "capture", "gphoto2", "staging directory required", nil)
	}

	captureCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		captureCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"--capture-image-and-download",
		"--filename=" + filepath.Join(stagingDir, FilenameTemplate),
	}
	result, err := c.exec.Run(captureCtx, c.binary, args)
	if err != nil {
		detail := fmt.Sprintf("exit status %d", result.ExitCode)
		if line := lastLine(result.Stderr); line != "" {
			detail += ": " + line
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			detail = fmt.Sprintf("timed out after %s", c.timeout)
		}
		return Asset{}, services.Wrap(services.ErrCapture, "capture", "gphoto2", detail, err)
	}

	asset, err := c.scan(stagingDir)
	if err != nil {
		return Asset{}, err
	}
	if asset.JPG == "" && asset.RAW == "" {
		return Asset{}, services.Wrap(services.ErrNoAsset, "capture", "scan", "gphoto2 succeeded but produced no jpg or raw file", nil)
	}
	return asset, nil
}

func (c *Client) scan(dir string) (Asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Asset{}, services.Wrap(services.ErrFilesystem, "capture", "scan", "read staging directory", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var asset Asset
	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case asset.JPG == "" && contains(c.jpgExts, ext):
			asset.JPG = filepath.Join(dir, name)
		case asset.RAW == "" && contains(c.rawExts, ext):
			asset.RAW = filepath.Join(dir, name)
		case contains(c.jpgExts, ext), contains(c.rawExts, ext):
			c.logger.Debug("extra capture file ignored", logging.String("file", name))
		}
	}
	return asset, nil
}

// Snapshot is a camera configuration dump and the strategy that produced it.
type Snapshot struct {
	Method string
	Data   []byte
}

// DumpConfig reads the camera configuration. It tries --list-all-config,
// then --list-config, then --list-all-config through a shell with stderr
// merged into stdout, moving on only when a strategy errors or prints
// nothing. All three failing yields services.ErrConfigSnapshot.
func (c *Client) DumpConfig(ctx context.Context) (Snapshot, error) {
	strategies := []struct {
		method string
		binary string
		args   []string
	}{
		{"list-all-config", c.binary, []string{"--list-all-config"}},
		{"list-config", c.binary, []string{"--list-config"}},
		{"shell", c.shell, []string{"-c", shellQuote(c.binary) + " --list-all-config 2>&1"}},
	}

	var errs []error
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := c.exec.Run(ctx, strategy.binary, strategy.args)
		if err == nil && len(bytes.TrimSpace(result.Stdout)) > 0 {
			return Snapshot{Method: strategy.method, Data: result.Stdout}, nil
		}
		if err == nil {
			err = errors.New("empty output")
		}
		errs = append(errs, fmt.Errorf("%s: %w", strategy.method, err))
		c.logger.Debug("config dump strategy failed",
			logging.String("method", strategy.method),
			logging.Error(err),
		)
	}
	return Snapshot{}, services.Wrap(services.ErrConfigSnapshot, "capture", "config snapshot", "all config dump strategies failed", errors.Join(errs...))
}

// Detect lists the cameras gphoto2 can see.
func (c *Client) Detect(ctx context.Context) ([]Camera, error) {
	result, err := c.exec.Run(ctx, c.binary, []string{"--auto-detect"})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "capture", "auto-detect", lastLine(result.Stderr), err)
	}
	return parseAutoDetect(result.Stdout), nil
}

// parseAutoDetect reads the two-column table gphoto2 --auto-detect prints:
//
//	Model                          Port
//	----------------------------------------------------------
//	Canon EOS 80D                  usb:001,004
func parseAutoDetect(out []byte) []Camera {
	var cameras []Camera
	past := false
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "---") {
			past = true
			continue
		}
		if !past || trimmed == "" {
			continue
		}
		idx := strings.LastIndexAny(trimmed, " \t")
		if idx < 0 {
			continue
		}
		model := strings.TrimSpace(trimmed[:idx])
		port := strings.TrimSpace(trimmed[idx+1:])
		if model == "" || port == "" {
			continue
		}
		cameras = append(cameras, Camera{Model: model, Port: port})
	}
	return cameras
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
