package capture

import (
	"context"
	"log/slog"
	"time"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
	"timelapsebox/internal/session"
)

type attemptOutcome struct {
	attempt int
	assets  session.Staged
	err     error
}

// sessionRun holds the progress of one session. Only the loop goroutine
// reads or writes it; attempts report back through outcomes.
type sessionRun struct {
	sched    *Scheduler
	cfg      SessionConfig
	dir      session.Directory
	logger   *slog.Logger
	start    time.Time
	shots    int
	attempt  int
	busy     bool
	outcomes chan attemptOutcome
	result   Result
}

func (r *sessionRun) loop(ctx context.Context) Result {
	r.start = r.sched.clock.Now()
	r.launch(ctx, r.start)

	ticker := r.sched.clock.NewTicker(r.cfg.Interval())
	defer ticker.Stop()

	var reason StopReason
	resolvedFirst := false
	for reason == "" {
		select {
		case <-ctx.Done():
			reason = StopCancelled
		case out := <-r.outcomes:
			r.apply(out)
			if !resolvedFirst {
				resolvedFirst = true
				reason = r.terminationReason()
			}
		case <-ticker.C():
			if reason = r.terminationReason(); reason != "" {
				continue
			}
			if r.busy {
				r.overrun()
				continue
			}
			r.launch(ctx, r.sched.clock.Now())
		}
	}
	return r.complete(ticker, reason)
}

func (r *sessionRun) terminationReason() StopReason {
	if r.shots >= r.cfg.TotalShotCount {
		return StopShotTarget
	}
	if r.sched.clock.Now().Sub(r.start) >= r.cfg.schedule() {
		return StopDuration
	}
	return ""
}

func (r *sessionRun) launch(ctx context.Context, at time.Time) {
	r.attempt++
	r.result.Attempts = r.attempt
	r.busy = true
	n := r.attempt
	go func() {
		r.outcomes <- r.capture(services.WithAttempt(ctx, n), n, at)
	}()
}

// capture runs in its own goroutine and touches only its attempt-private
// staging folder and the asset names derived from n.
func (r *sessionRun) capture(ctx context.Context, n int, at time.Time) attemptOutcome {
	out := attemptOutcome{attempt: n}
	staging, err := r.dir.StagingDir(n)
	if err != nil {
		out.err = err
		return out
	}
	logger := r.logger.With(logging.Int(logging.FieldAttempt, n))
	logger.Debug("capture attempt started", logging.String("staging", staging))

	asset, err := r.sched.camera.Capture(ctx, staging)
	if err != nil {
		out.err = err
		return out
	}
	promoted, err := r.dir.Promote(session.Staged{JPG: asset.JPG, RAW: asset.RAW}, n, at)
	out.assets = promoted
	if err != nil {
		if promoted.Empty() {
			out.err = err
			return out
		}
		logging.WarnWithContext(logger, "shot kept without its companion file", "capture_partial",
			logging.Error(err),
			logging.String(logging.FieldImpact, "one of jpg/raw is missing for this shot"),
		)
	}
	return out
}

func (r *sessionRun) apply(out attemptOutcome) {
	r.busy = false
	logger := r.logger.With(logging.Int(logging.FieldAttempt, out.attempt))
	failed := out.err != nil

	switch {
	case failed:
		r.result.Failures++
		logging.ErrorWithContext(logger, "capture attempt failed", "capture_failed",
			logging.String("failure", services.FailureKind(out.err)),
			logging.Error(out.err),
			logging.String(logging.FieldErrorHint, "check the camera connection, battery and card"),
		)
	default:
		r.shots++
		if out.assets.JPG != "" {
			r.result.JPG = append(r.result.JPG, out.assets.JPG)
		}
		if out.assets.RAW != "" {
			r.result.RAW = append(r.result.RAW, out.assets.RAW)
		}
		logger.Info("shot captured",
			logging.Int("shot", r.shots),
			logging.String("jpg", out.assets.JPG),
			logging.String("raw", out.assets.RAW),
			logging.String(logging.FieldEventType, "shot_captured"),
		)
	}

	progress := newProgress(r.shots, r.cfg.TotalShotCount, out.attempt, r.sched.clock.Now().Sub(r.start), failed)
	logger.Info("capture progress",
		logging.Int("shots", progress.ShotsCaptured),
		logging.Int("total", progress.TotalShotCount),
		logging.Int("percent", progress.PercentComplete),
		logging.Float64("elapsed_minutes", progress.ElapsedMinutes),
		logging.String(logging.FieldEventType, "capture_progress"),
	)
	if r.sched.onProgress != nil {
		r.sched.onProgress(progress)
	}
}

func (r *sessionRun) overrun() {
	r.result.Overruns++
	logging.WarnWithContext(r.logger, "capture attempt skipped; previous attempt still running", "capture_overrun",
		logging.Int("attempt_in_flight", r.attempt),
		logging.String(logging.FieldErrorHint, "lengthen the interval or set capture.timeout_seconds"),
		logging.String(logging.FieldImpact, "one scheduled shot skipped"),
	)
}

func (r *sessionRun) complete(ticker Ticker, reason StopReason) Result {
	r.sched.state.Store(int32(StateCompleting))
	ticker.Stop()
	if r.busy {
		r.logger.Info("waiting for in-flight capture attempt", logging.Int(logging.FieldAttempt, r.attempt))
		r.apply(<-r.outcomes)
	}

	cleanup := r.dir.CleanupStaging(r.logger)
	r.result.StagingLeft = cleanup.Failed
	r.result.ShotsCaptured = r.shots
	r.result.Elapsed = r.sched.clock.Now().Sub(r.start)
	r.result.Reason = reason

	r.logger.Info("capture session completed",
		logging.String("reason", string(reason)),
		logging.Int("shots", r.shots),
		logging.Int("total_shots", r.cfg.TotalShotCount),
		logging.Int("attempts", r.result.Attempts),
		logging.Int("failures", r.result.Failures),
		logging.Int("overruns", r.result.Overruns),
		logging.Duration("elapsed", r.result.Elapsed),
		logging.String(logging.FieldEventType, "session_completed"),
	)
	return r.result
}
