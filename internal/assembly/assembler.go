package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timelapsebox/internal/config"
	"timelapsebox/internal/deps"
	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
	"timelapsebox/internal/services/ffmpeg"
	"timelapsebox/internal/session"
)

// PhaseName names the assembly phase in session logs.
const PhaseName = "assembly"

// Assembler runs the encoder over a frame sequence.
type Assembler struct {
	encoder      ffmpeg.Encoder
	outputName   string
	extensions   []string
	logger       *slog.Logger
	logFormat    string
	checkEncoder func() error
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger; session logs tee into it.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLogFormat selects the session log file format.
func WithLogFormat(format string) Option {
	return func(a *Assembler) { a.logFormat = format }
}

// WithOutputName sets the video file name written under output/.
func WithOutputName(name string) Option {
	return func(a *Assembler) {
		if name = strings.TrimSpace(name); name != "" {
			a.outputName = filepath.Base(name)
		}
	}
}

// WithExtensions sets the frame extensions SelectFrames tries.
func WithExtensions(exts []string) Option {
	return func(a *Assembler) { a.extensions = exts }
}

// WithEncoderCheck replaces the encoder availability check.
func WithEncoderCheck(check func() error) Option {
	return func(a *Assembler) { a.checkEncoder = check }
}

// New constructs an Assembler around encoder.
func New(encoder ffmpeg.Encoder, opts ...Option) *Assembler {
	a := &Assembler{
		encoder:    encoder,
		outputName: "timelapse.mp4",
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig wires the ffmpeg CLI encoder and a PATH check for its
// binary from cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Assembler {
	binary := cfg.Assembly.Binary
	encoder := ffmpeg.NewCLI(
		ffmpeg.WithBinary(binary),
		ffmpeg.WithCodec(cfg.Assembly.Codec, cfg.Assembly.PixelFormat),
	)
	return New(encoder,
		WithLogger(logger),
		WithLogFormat(cfg.Logging.Format),
		WithOutputName(cfg.Assembly.OutputName),
		WithExtensions(cfg.Capture.JPGExtensions),
		WithEncoderCheck(func() error { return EncoderAvailable(binary) }),
	)
}

// EncoderAvailable reports services.ErrExternalTool when binary is not on
// PATH.
func EncoderAvailable(binary string) error {
	status := deps.Check(deps.Encoder(binary))
	if !status.Available {
		return services.Wrap(services.ErrExternalTool, "assembly", "encoder check", status.Detail+"; install ffmpeg or set assembly.binary", nil)
	}
	return nil
}

// Assemble encodes the frames matched by inputPattern into outputPath and
// returns the written path.
func (a *Assembler) Assemble(ctx context.Context, inputPattern, outputPath string, fps, quality, totalFrames int) (string, error) {
	if err := config.ValidateEncoding(fps, quality); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "validate", err.Error(), nil)
	}
	if a.encoder == nil {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "assemble", "no encoder configured", nil)
	}
	if a.checkEncoder != nil {
		if err := a.checkEncoder(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "assembly", "create output", filepath.Dir(outputPath), err)
	}

	logger := logging.NewComponentLogger(a.logger, "assembly")
	logger.Info("assembly started",
		logging.String("input_pattern", inputPattern),
		logging.String("output", outputPath),
		logging.Int("fps", fps),
		logging.Int("quality", quality),
		logging.Int("frames", totalFrames),
		logging.String(logging.FieldEventType, "assembly_started"),
	)

	sampler := logging.NewProgressSampler(25)
	path, err := a.encoder.Assemble(ctx, ffmpeg.Request{
		InputPattern: inputPattern,
		OutputPath:   outputPath,
		FPS:          fps,
		Quality:      quality,
		TotalFrames:  totalFrames,
		Progress: func(u ffmpeg.ProgressUpdate) {
			if u.TotalFrames > 0 && !sampler.ShouldLog(u.Percent) {
				return
			}
			logger.Info("assembly progress",
				logging.Int("frame", u.Frame),
				logging.Float64("percent", u.Percent),
				logging.String(logging.FieldEventType, "assembly_progress"),
			)
		},
	})
	if err != nil {
		logging.ErrorWithContext(logger, "assembly failed", "assembly_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the ffmpeg command by hand to see the full error"),
		)
		return "", err
	}
	logger.Info("assembly completed",
		logging.String("output", path),
		logging.Duration("video_length", videoLength(totalFrames, fps)),
		logging.String(logging.FieldEventType, "assembly_completed"),
	)
	return path, nil
}

// Summary describes one assembly run over a session.
type Summary struct {
	Session session.Directory
	RunID   string
	Frames  Frames
	Output  string
	FPS     int
	Quality int
}

// AssembleSession picks the session's frames and writes
// output/<output name>.
func (a *Assembler) AssembleSession(ctx context.Context, dir session.Directory, fps, quality int) (Summary, error) {
	summary := Summary{Session: dir, FPS: fps, Quality: quality}
	if err := config.ValidateEncoding(fps, quality); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "assembly", "validate", err.Error(), nil)
	}
	frames, err := SelectFrames(dir, a.extensions)
	if err != nil {
		return summary, err
	}
	summary.Frames = frames

	sessionLog, err := logging.OpenSessionLog(a.logger, dir.Path, PhaseName, a.logFormat)
	if err != nil {
		return summary, services.Wrap(services.ErrFilesystem, "assembly", "session log", "open session log", err)
	}
	defer sessionLog.Close()
	summary.RunID = sessionLog.RunID

	scoped := *a
	scoped.logger = sessionLog.Logger
	if !frames.Processed {
		sessionLog.Logger.Info("no processed frames; using captured jpgs",
			logging.String("pattern", frames.Pattern),
			logging.String(logging.FieldEventType, "assembly_fallback"),
		)
	}
	ctx = services.WithSessionID(services.WithPhase(ctx, PhaseName), sessionLog.RunID)
	summary.Output, err = scoped.Assemble(ctx, frames.Pattern, filepath.Join(dir.Output(), a.outputName), fps, quality, frames.Count)
	return summary, err
}

func videoLength(frames, fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(fps)
}

func (s Summary) String() string {
	return fmt.Sprintf("%d frames at %d fps -> %s", s.Frames.Count, s.FPS, s.Output)
}
