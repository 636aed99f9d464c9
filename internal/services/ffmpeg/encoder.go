package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"timelapsebox/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate reports how many frames ffmpeg has written so far.
type ProgressUpdate struct {
	Frame       int
	TotalFrames int
	Percent     float64
	Done        bool
}

// Request describes one assembly run.
type Request struct {
	// InputPattern is a glob such as /data/series_x/processed/processed_*.jpg.
	InputPattern string
	OutputPath   string
	FPS          int
	// Quality is the x264 constant rate factor, 0 (lossless) to 51.
	Quality int
	// TotalFrames, when known, lets progress updates carry a percentage.
	TotalFrames int
	Progress    func(ProgressUpdate)
}

// Encoder assembles image sequences into videos.
type Encoder interface {
	Assemble(ctx context.Context, req Request) (string, error)
}

// Option configures the CLI encoder.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary = strings.TrimSpace(binary); binary != "" {
			c.binary = binary
		}
	}
}

// WithCodec overrides the video codec and pixel format.
func WithCodec(codec, pixelFormat string) Option {
	return func(c *CLI) {
		if codec = strings.TrimSpace(codec); codec != "" {
			c.codec = codec
		}
		if pixelFormat = strings.TrimSpace(pixelFormat); pixelFormat != "" {
			c.pixelFormat = pixelFormat
		}
	}
}

// CLI wraps the ffmpeg command-line encoder.
type CLI struct {
	binary      string
	codec       string
	pixelFormat string
}

// NewCLI constructs a CLI encoder using H.264 / yuv420p defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", codec: "libx264", pixelFormat: "yuv420p"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the ffmpeg executable name or path.
func (c *CLI) Binary() string { return c.binary }

// Args returns the ffmpeg argument list for req.
func (c *CLI) Args(req Request) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-framerate", strconv.Itoa(req.FPS),
		"-pattern_type", "glob",
		"-i", req.InputPattern,
		"-c:v", c.codec,
		"-pix_fmt", c.pixelFormat,
		"-crf", strconv.Itoa(req.Quality),
		"-progress", "pipe:1",
		"-nostats",
		req.OutputPath,
	}
}

// Assemble runs ffmpeg once and returns the output path. A non-zero exit is
// reported as services.ErrEncoding and any partial output file is removed.
func (c *CLI) Assemble(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.InputPattern) == "" {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "ffmpeg", "input pattern required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "ffmpeg", "output path required", nil)
	}
	if req.FPS <= 0 {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "ffmpeg", "fps must be positive", nil)
	}
	if req.Quality < 0 || req.Quality > 51 {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "ffmpeg", "quality must be between 0 and 51", nil)
	}

	cmd := commandContext(ctx, c.binary, c.Args(req)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return "", services.Wrap(services.ErrEncoding, "assembly", "ffmpeg", "start encoder", err)
	}

	scanner := bufio.NewScanner(stdout)
	var frame int
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "frame":
			if n, err := strconv.Atoi(value); err == nil {
				frame = n
			}
		case "progress":
			if req.Progress != nil {
				req.Progress(newProgress(frame, req.TotalFrames, value == "end"))
			}
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(req.OutputPath)
		detail := "encoder exited with error"
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			detail = lastLines(msg, 3)
		}
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrEncoding, "assembly", "ffmpeg", "cancelled", ctx.Err())
		}
		return "", services.Wrap(services.ErrEncoding, "assembly", "ffmpeg", detail, err)
	}
	if scanErr != nil {
		return "", services.Wrap(services.ErrEncoding, "assembly", "ffmpeg", "read progress", scanErr)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return "", services.Wrap(services.ErrEncoding, "assembly", "ffmpeg", "encoder produced no output file", err)
	}
	return req.OutputPath, nil
}

func newProgress(frame, total int, done bool) ProgressUpdate {
	update := ProgressUpdate{Frame: frame, TotalFrames: total, Done: done, Percent: -1}
	if total > 0 {
		update.Percent = min(100, float64(frame)/float64(total)*100)
	}
	if done && total > 0 {
		update.Percent = 100
	}
	return update
}

func lastLines(msg string, n int) string {
	lines := strings.Split(msg, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

var _ Encoder = (*CLI)(nil)
