package capture

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"timelapsebox/internal/fileutil"
	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
	"timelapsebox/internal/services/gphoto2"
	"timelapsebox/internal/session"
)

// PhaseName names the capture phase in session logs (capture_log.txt).
const PhaseName = "capture"

// Camera is the capture tool adapter the scheduler drives.
type Camera interface {
	Capture(ctx context.Context, stagingDir string) (gphoto2.Asset, error)
	DumpConfig(ctx context.Context) (gphoto2.Snapshot, error)
}

// State is the lifecycle state of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleting:
		return "completing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason records which termination condition ended a session.
type StopReason string

const (
	StopShotTarget StopReason = "shot_target"
	StopDuration   StopReason = "duration"
	StopCancelled  StopReason = "cancelled"
)

// Started describes a session that has just begun.
type Started struct {
	Session session.Directory
	RunID   string
	Config  SessionConfig
	Start   time.Time
}

// Result is what a finished session produced.
type Result struct {
	Session        session.Directory
	RunID          string
	JPG            []string
	RAW            []string
	ShotsCaptured  int
	Attempts       int
	Failures       int
	Overruns       int
	Elapsed        time.Duration
	Reason         StopReason
	ConfigSnapshot bool
	// StagingLeft lists temp/ paths cleanup could not remove.
	StagingLeft []string
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock (primarily for tests).
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the base logger session logs tee into.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLogFormat selects "console" or "json" for the session log files.
func WithLogFormat(format string) Option {
	return func(s *Scheduler) { s.logFormat = format }
}

// WithConfigSnapshot toggles the camera_config.txt dump at session start.
func WithConfigSnapshot(enabled bool) Option {
	return func(s *Scheduler) { s.snapshot = enabled }
}

// WithProgress registers a callback invoked from the scheduler loop after
// every attempt. It must not block for long.
func WithProgress(fn func(Progress)) Option {
	return func(s *Scheduler) { s.onProgress = fn }
}

// WithStartHook registers a callback invoked once the session directory and
// session log exist.
func WithStartHook(fn func(Started)) Option {
	return func(s *Scheduler) { s.onStart = fn }
}

// Scheduler runs capture sessions, one at a time.
type Scheduler struct {
	camera     Camera
	sessions   *session.Manager
	clock      Clock
	logger     *slog.Logger
	logFormat  string
	snapshot   bool
	onProgress func(Progress)
	onStart    func(Started)
	state      atomic.Int32
}

// New constructs a Scheduler.
func New(camera Camera, sessions *session.Manager, opts ...Option) *Scheduler {
	s := &Scheduler{
		camera:   camera,
		sessions: sessions,
		clock:    realClock{},
		logger:   logging.NewNop(),
		snapshot: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the scheduler lifecycle state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Run executes one session. An invalid cfg fails with
// services.ErrConfiguration before anything touches the disk. Individual
// capture failures never fail the session. Cancelling ctx ends the session
// early; the partial Result is returned with StopCancelled and a nil error.
func (s *Scheduler) Run(ctx context.Context, cfg SessionConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if s.camera == nil || s.sessions == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "capture", "run", "camera and session manager are required", nil)
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) &&
		!s.state.CompareAndSwap(int32(StateDone), int32(StateRunning)) {
		return Result{}, services.Wrap(services.ErrBusy, "capture", "run", "a session is already running", nil)
	}
	defer s.state.Store(int32(StateDone))

	created := s.clock.Now()
	dir, err := s.sessions.Create(created)
	if err != nil {
		return Result{}, err
	}
	sessionLog, err := logging.OpenSessionLog(s.logger, dir.Path, PhaseName, s.logFormat)
	if err != nil {
		return Result{Session: dir}, services.Wrap(services.ErrFilesystem, "capture", "session log", "open session log", err)
	}
	defer sessionLog.Close()

	logger := logging.NewComponentLogger(sessionLog.Logger, "capture")
	ctx = services.WithSessionID(services.WithPhase(ctx, PhaseName), sessionLog.RunID)

	logger.Info("capture session started",
		logging.String(logging.FieldSessionDir, dir.Path),
		logging.Duration("total_duration", cfg.TotalDuration),
		logging.Int("total_shots", cfg.TotalShotCount),
		logging.Duration("interval", cfg.Interval()),
		logging.String(logging.FieldEventType, "session_started"),
	)
	if s.onStart != nil {
		s.onStart(Started{Session: dir, RunID: sessionLog.RunID, Config: cfg, Start: created})
	}

	run := &sessionRun{
		sched:    s,
		cfg:      cfg,
		dir:      dir,
		logger:   logger,
		outcomes: make(chan attemptOutcome, 1),
	}
	run.result.Session = dir
	run.result.RunID = sessionLog.RunID
	if s.snapshot {
		run.result.ConfigSnapshot = s.snapshotConfig(ctx, dir, logger)
	}
	return run.loop(ctx), nil
}

func (s *Scheduler) snapshotConfig(ctx context.Context, dir session.Directory, logger *slog.Logger) bool {
	snap, err := s.camera.DumpConfig(ctx)
	if err == nil {
		err = fileutil.WriteAtomic(dir.ConfigSnapshot(), func(w io.Writer) error {
			_, werr := w.Write(snap.Data)
			return werr
		})
		if err != nil {
			err = services.Wrap(services.ErrConfigSnapshot, "capture", "config snapshot", "write "+session.ConfigSnapshotName, err)
		}
	}
	if err != nil {
		logging.WarnWithContext(logger, "camera config snapshot failed; continuing without it", "config_snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the camera connection and that gphoto2 --list-all-config works"),
			logging.String(logging.FieldImpact, "session has no "+session.ConfigSnapshotName),
		)
		return false
	}
	logger.Info("camera config saved",
		logging.String("path", dir.ConfigSnapshot()),
		logging.String("method", snap.Method),
		logging.Int("bytes", len(snap.Data)),
		logging.String(logging.FieldEventType, "config_snapshot"),
	)
	return true
}
