package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"timelapsebox/internal/assembly"
	"timelapsebox/internal/camwatch"
	"timelapsebox/internal/capture"
	"timelapsebox/internal/catalog"
	"timelapsebox/internal/config"
	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
	"timelapsebox/internal/services/gphoto2"
	"timelapsebox/internal/session"
	"timelapsebox/internal/staging"
)

const defaultCameraWait = 2 * time.Minute

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var assemble bool
	var waitForCamera bool

	cmd := &cobra.Command{
		Use:   "capture [duration-minutes] [shot-count]",
		Short: "Capture a timelapse series from the tethered camera",
		Long: `Capture shot-count photos spread evenly over duration-minutes.

Both arguments default to the [capture] section of the configuration file.
Photos land in a new series_<timestamp> directory under data_dir. Ctrl-C
stops the series early and keeps everything captured so far.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			minutes, err := parseMinutes(optionalArg(args, 0), cfg.Capture.DurationMinutes)
			if err != nil {
				return err
			}
			shots, err := parsePositiveInt("shot-count", optionalArg(args, 1), cfg.Capture.ShotCount)
			if err != nil {
				return err
			}
			sessionCfg, err := capture.NewSessionConfig(minutes, shots)
			if err != nil {
				return err
			}
			return runCapture(cmd, ctx, cfg, sessionCfg, captureFlags{
				assemble:      assemble,
				waitForCamera: waitForCamera,
			})
		},
	}

	cmd.Flags().BoolVar(&assemble, "assemble", false, "Assemble the video as soon as capture finishes")
	cmd.Flags().BoolVar(&waitForCamera, "wait-for-camera", false, "Wait for a camera to be plugged in before capturing")
	return cmd
}

type captureFlags struct {
	assemble      bool
	waitForCamera bool
}

func runCapture(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, sessionCfg capture.SessionConfig, flags captureFlags) error {
	logger := ctx.loggerValue()
	out := cmd.OutOrStdout()

	lock := capture.NewLock(cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if days := cfg.Capture.StaleStagingMaxAgeDays; days > 0 {
		staging.CleanStale(cmd.Context(), cfg.Paths.DataDir, staleStagingAge(days), logger)
	}

	store := ctx.catalogOrWarn()
	if store != nil {
		if n, err := store.MarkInterrupted(cmd.Context()); err != nil {
			logging.WarnWithContext(logger, "failed to mark stale sessions", "catalog_mark_interrupted_failed", logging.Error(err))
		} else if n > 0 {
			logger.Info("marked stale sessions interrupted",
				logging.Int64("count", n),
				logging.String(logging.FieldEventType, "catalog_sessions_interrupted"),
			)
		}
	}

	client, err := gphoto2.New(cfg.Capture.Binary,
		gphoto2.WithTimeout(time.Duration(cfg.Capture.TimeoutSeconds)*time.Second),
		gphoto2.WithExtensions(cfg.Capture.JPGExtensions, cfg.Capture.RAWExtensions),
		gphoto2.WithLogger(logger),
	)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "capture", "gphoto2", err.Error(), nil)
	}

	waitTimeout := time.Duration(cfg.Capture.WaitForCameraSeconds) * time.Second
	if flags.waitForCamera || waitTimeout > 0 {
		if waitTimeout <= 0 {
			waitTimeout = defaultCameraWait
		}
		if err := waitForCamera(cmd.Context(), client, camwatch.New(logger), waitTimeout, logger, out); err != nil {
			return err
		}
	}

	manager := session.NewManager(cfg.Paths.DataDir, logger)
	jsonMode := ctx.JSONMode()
	var startedRun capture.Started
	scheduler := capture.New(client, manager,
		capture.WithLogger(logger),
		capture.WithLogFormat(cfg.Logging.Format),
		capture.WithConfigSnapshot(cfg.Capture.SnapshotConfig),
		capture.WithStartHook(func(started capture.Started) {
			startedRun = started
			if !jsonMode {
				fmt.Fprintf(out, "Session %s: %d shots over %s (every %s)\n",
					started.Session.Name(),
					started.Config.TotalShotCount,
					started.Config.TotalDuration,
					started.Config.Interval().Round(time.Millisecond),
				)
			}
			if store == nil {
				return
			}
			if err := store.StartSession(cmd.Context(), catalog.SessionStart{
				RunID:      started.RunID,
				Name:       started.Session.Name(),
				Path:       started.Session.Path,
				Duration:   started.Config.TotalDuration,
				TotalShots: started.Config.TotalShotCount,
				StartedAt:  started.Start,
			}); err != nil {
				logging.WarnWithContext(logger, "failed to catalog session start", "catalog_write_failed", logging.Error(err))
			}
		}),
		capture.WithProgress(func(p capture.Progress) {
			if jsonMode {
				return
			}
			fmt.Fprintln(out, formatCaptureProgress(p))
		}),
	)

	result, err := scheduler.Run(cmd.Context(), sessionCfg)
	if err != nil {
		return err
	}

	status := captureStatus(result, sessionCfg)
	if store != nil && startedRun.RunID != "" {
		// The invocation context may already be cancelled; the final row
		// must still be written.
		if err := store.FinishSession(context.WithoutCancel(cmd.Context()), result.RunID, catalog.SessionFinish{
			Status:         status,
			ShotsCaptured:  result.ShotsCaptured,
			Attempts:       result.Attempts,
			Failures:       result.Failures,
			Overruns:       result.Overruns,
			StopReason:     string(result.Reason),
			ConfigSnapshot: result.ConfigSnapshot,
			FinishedAt:     time.Now(),
		}); err != nil {
			logging.WarnWithContext(logger, "failed to catalog session result", "catalog_write_failed", logging.Error(err))
		}
	}

	var assembled *assembly.Summary
	if flags.assemble {
		switch {
		case result.Reason == capture.StopCancelled:
			fmt.Fprintln(cmd.ErrOrStderr(), "Capture cancelled; skipping assembly")
		case result.ShotsCaptured == 0:
			fmt.Fprintln(cmd.ErrOrStderr(), "No photos captured; skipping assembly")
		default:
			summary, err := runAssembly(cmd.Context(), ctx, cfg, result.Session, cfg.Assembly.FPS, cfg.Assembly.Quality)
			if err != nil {
				return err
			}
			assembled = &summary
		}
	}

	if jsonMode {
		return writeCaptureJSON(cmd, result, sessionCfg, status, assembled)
	}
	printCaptureSummary(out, result, sessionCfg, status)
	fmt.Fprintln(out, cameraConfigReport(result.Session, cfg.Capture.SnapshotConfig))
	if assembled != nil {
		fmt.Fprintln(out, assembled.String())
	}
	return nil
}

// waitForCamera returns as soon as gphoto2 already sees a camera; otherwise
// it blocks on a udev add event. Without netlink access it logs and lets the
// capture proceed so the first attempt reports the real problem.
func waitForCamera(ctx context.Context, detector *gphoto2.Client, watcher *camwatch.Watcher, timeout time.Duration, logger *slog.Logger, out io.Writer) error {
	if cameras, err := detector.Detect(ctx); err == nil && len(cameras) > 0 {
		logger.Info("camera already connected",
			logging.String("model", cameras[0].Model),
			logging.String("port", cameras[0].Port),
			logging.String(logging.FieldEventType, "camera_present"),
		)
		return nil
	}

	fmt.Fprintf(out, "Waiting up to %s for a camera...\n", timeout)
	event, err := watcher.Wait(ctx, timeout)
	switch {
	case err == nil:
		fmt.Fprintf(out, "Camera connected: %s\n", event.Label())
		return nil
	case errors.Is(err, services.ErrExternalTool):
		logging.WarnWithContext(logger, "cannot watch for camera hot-plug; capturing anyway", "camera_wait_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "udev netlink needs a Linux host with access to uevents"),
		)
		return nil
	default:
		return err
	}
}

func captureStatus(result capture.Result, cfg capture.SessionConfig) catalog.Status {
	switch {
	case result.Reason == capture.StopCancelled:
		return catalog.StatusCancelled
	case result.ShotsCaptured < cfg.TotalShotCount:
		return catalog.StatusPartial
	default:
		return catalog.StatusCompleted
	}
}

func formatCaptureProgress(p capture.Progress) string {
	line := fmt.Sprintf("[%d/%d] %3d%%  %.1f min", p.ShotsCaptured, p.TotalShotCount, p.PercentComplete, p.ElapsedMinutes)
	if p.Failed {
		line += fmt.Sprintf("  attempt %d failed", p.Attempt)
	}
	return line
}

func printCaptureSummary(out io.Writer, result capture.Result, cfg capture.SessionConfig, status catalog.Status) {
	fmt.Fprint(out, renderKeyValues([][2]string{
		{"Session", result.Session.Path},
		{"Status", string(status)},
		{"Stopped by", string(result.Reason)},
		{"Shots", fmt.Sprintf("%d / %d", result.ShotsCaptured, cfg.TotalShotCount)},
		{"Attempts", fmt.Sprintf("%d (%d failed, %d skipped ticks)", result.Attempts, result.Failures, result.Overruns)},
		{"JPG files", fmt.Sprintf("%d", len(result.JPG))},
		{"RAW files", fmt.Sprintf("%d", len(result.RAW))},
		{"Elapsed", result.Elapsed.Round(time.Second).String()},
	}))
	if len(result.StagingLeft) > 0 {
		fmt.Fprintf(out, "Staging left behind (%d); run `timelapsebox staging clean`\n", len(result.StagingLeft))
	}
}

// cameraConfigReport says whether the configuration snapshot was written.
func cameraConfigReport(dir session.Directory, enabled bool) string {
	if !enabled {
		return "Camera config: snapshot disabled (capture.snapshot_config = false)"
	}
	info, err := os.Stat(dir.ConfigSnapshot())
	if err != nil {
		return fmt.Sprintf("Camera config: %s not saved; check the camera connection and try `gphoto2 --list-all-config`", session.ConfigSnapshotName)
	}
	return fmt.Sprintf("Camera config: %s (%s)", dir.ConfigSnapshot(), formatBytes(info.Size()))
}

func writeCaptureJSON(cmd *cobra.Command, result capture.Result, cfg capture.SessionConfig, status catalog.Status, assembled *assembly.Summary) error {
	payload := map[string]any{
		"session":         result.Session.Path,
		"run_id":          result.RunID,
		"status":          status,
		"stop_reason":     result.Reason,
		"shots_captured":  result.ShotsCaptured,
		"total_shots":     cfg.TotalShotCount,
		"attempts":        result.Attempts,
		"failures":        result.Failures,
		"overruns":        result.Overruns,
		"elapsed_seconds": result.Elapsed.Seconds(),
		"jpg":             nonNil(result.JPG),
		"raw":             nonNil(result.RAW),
		"config_snapshot": result.ConfigSnapshot,
		"staging_left":    nonNil(result.StagingLeft),
	}
	if assembled != nil {
		payload["video"] = assembled.Output
	}
	return writeJSON(cmd, payload)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
