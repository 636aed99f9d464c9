package processing

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
	"timelapsebox/internal/session"
)

// PhaseName names the processing phase in session logs.
const PhaseName = "processing"

// OutputPrefix is prepended to every processed file name.
const OutputPrefix = "processed_"

// Processor runs a Transform over a folder of photos.
type Processor struct {
	transform  Transform
	extensions []string
	logger     *slog.Logger
	logFormat  string
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger; session logs tee into it.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithExtensions overrides which file extensions count as input photos.
func WithExtensions(exts []string) Option {
	return func(p *Processor) {
		if len(exts) > 0 {
			p.extensions = exts
		}
	}
}

// WithLogFormat selects the session log file format.
func WithLogFormat(format string) Option {
	return func(p *Processor) { p.logFormat = format }
}

// New constructs a Processor around transform.
func New(transform Transform, opts ...Option) *Processor {
	p := &Processor{
		transform:  transform,
		extensions: []string{".jpg", ".jpeg"},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.transform == nil {
		p.transform = CopyTransform{}
	}
	return p
}

// Inputs lists the photos in dir that ProcessAll would handle, in order.
func (p *Processor) Inputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "processing", "list inputs", "photo folder does not exist: "+dir, err)
		}
		return nil, services.Wrap(services.ErrFilesystem, "processing", "list inputs", dir, err)
	}
	var inputs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, OutputPrefix) {
			continue
		}
		if !slices.Contains(p.extensions, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		inputs = append(inputs, filepath.Join(dir, name))
	}
	slices.Sort(inputs)
	return inputs, nil
}

// ProcessAll transforms every photo in jpgDir into outDir and returns the
// output paths that were written, in input order. A folder without photos
// fails with services.ErrNotFound. Per-photo failures are logged and left
// out of the result. Cancelling ctx stops before the next photo.
func (p *Processor) ProcessAll(ctx context.Context, jpgDir, outDir string) ([]string, error) {
	inputs, err := p.Inputs(jpgDir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "processing", "list inputs", "no photos in "+jpgDir, nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "processing", "create output", outDir, err)
	}

	logger := logging.NewComponentLogger(p.logger, "processing")
	logger.Info("processing started",
		logging.String("input_dir", jpgDir),
		logging.String("output_dir", outDir),
		logging.String("transform", p.transform.Name()),
		logging.Int("photos", len(inputs)),
		logging.String(logging.FieldEventType, "processing_started"),
	)

	sampler := logging.NewProgressSampler(0)
	outputs := make([]string, 0, len(inputs))
	failed := 0
	for i, src := range inputs {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		dst := filepath.Join(outDir, OutputPrefix+filepath.Base(src))
		if err := p.transform.Apply(ctx, src, dst); err != nil {
			if ctx.Err() != nil {
				return outputs, ctx.Err()
			}
			failed++
			logging.ErrorWithContext(logger, "photo processing failed", "photo_failed",
				logging.String("photo", filepath.Base(src)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the source photo; it is skipped"),
			)
			continue
		}
		outputs = append(outputs, dst)
		percent := float64(i+1) / float64(len(inputs)) * 100
		if sampler.ShouldLog(percent) {
			logger.Info("processing progress",
				logging.Int("done", i+1),
				logging.Int("total", len(inputs)),
				logging.Int("percent", int(percent)),
				logging.String(logging.FieldEventType, "processing_progress"),
			)
		}
	}

	logger.Info("processing completed",
		logging.Int("processed", len(outputs)),
		logging.Int("failed", failed),
		logging.String(logging.FieldEventType, "processing_completed"),
	)
	return outputs, nil
}

// Summary describes one processing run over a session.
type Summary struct {
	Session session.Directory
	RunID   string
	OutDir  string
	Inputs  int
	Outputs []string
}

// Failed is the number of photos that did not produce an output.
func (s Summary) Failed() int { return s.Inputs - len(s.Outputs) }

// ProcessSession runs ProcessAll over dir's jpg folder with a session log
// bound to the processing phase. outDir defaults to dir's processed folder.
func (p *Processor) ProcessSession(ctx context.Context, dir session.Directory, outDir string) (Summary, error) {
	if strings.TrimSpace(outDir) == "" {
		outDir = dir.Processed()
	}
	summary := Summary{Session: dir, OutDir: outDir}

	sessionLog, err := logging.OpenSessionLog(p.logger, dir.Path, PhaseName, p.logFormat)
	if err != nil {
		return summary, services.Wrap(services.ErrFilesystem, "processing", "session log", "open session log", err)
	}
	defer sessionLog.Close()
	summary.RunID = sessionLog.RunID

	inputs, err := p.Inputs(dir.JPG())
	if err != nil {
		return summary, err
	}
	summary.Inputs = len(inputs)

	scoped := *p
	scoped.logger = sessionLog.Logger
	ctx = services.WithSessionID(services.WithPhase(ctx, PhaseName), sessionLog.RunID)
	summary.Outputs, err = scoped.ProcessAll(ctx, dir.JPG(), outDir)
	return summary, err
}
