package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timelapsebox/internal/assembly"
	"timelapsebox/internal/catalog"
	"timelapsebox/internal/config"
	"timelapsebox/internal/logging"
	"timelapsebox/internal/processing"
	"timelapsebox/internal/session"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "process [directory]",
		Short: "Apply the configured transform to every captured photo",
		Long: `Run the [processing] transform over a session's jpg/ folder.

Outputs are named processed_<original> and land in the session's
processed/ folder unless --output is given. Without a directory the most
recent session is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := resolveSession(ctx, optionalArg(args, 0))
			if err != nil {
				return err
			}
			if outputDir != "" {
				if outputDir, err = config.ExpandPath(outputDir); err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
			}

			transform, err := processing.NewTransform(cfg.Processing)
			if err != nil {
				return err
			}
			logger := ctx.loggerValue()
			processor := processing.New(transform,
				processing.WithLogger(logger),
				processing.WithExtensions(cfg.Capture.JPGExtensions),
				processing.WithLogFormat(cfg.Logging.Format),
			)

			started := time.Now()
			summary, err := processor.ProcessSession(cmd.Context(), dir, outputDir)
			recordStage(ctx, catalog.StageRun{
				RunID:       summary.RunID,
				SessionPath: dir.Path,
				Phase:       processing.PhaseName,
				Inputs:      summary.Inputs,
				Outputs:     len(summary.Outputs),
				OutputPath:  summary.OutDir,
				StartedAt:   started,
			}, err)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"session":   dir.Path,
					"run_id":    summary.RunID,
					"transform": transform.Name(),
					"output":    summary.OutDir,
					"inputs":    summary.Inputs,
					"processed": len(summary.Outputs),
					"failed":    summary.Failed(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d of %d photos with %s -> %s\n", len(summary.Outputs), summary.Inputs, transform.Name(), summary.OutDir)
			if failed := summary.Failed(); failed > 0 {
				fmt.Fprintf(out, "%d photos failed; see %s\n", failed, logging.PhaseLogName(processing.PhaseName))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Write processed photos here instead of <session>/processed")
	return cmd
}

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble [directory] [fps] [quality]",
		Short: "Encode a session's frames into an MP4",
		Long: `Encode a session into output/<assembly.output_name> with ffmpeg.

Processed frames are preferred; without them the captured jpg/ photos are
used. fps and quality (x264 CRF, 0-51, lower is better) default to the
[assembly] section of the configuration file.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fps, err := parsePositiveInt("fps", optionalArg(args, 1), cfg.Assembly.FPS)
			if err != nil {
				return err
			}
			quality, err := parseNonNegativeInt("quality", optionalArg(args, 2), cfg.Assembly.Quality)
			if err != nil {
				return err
			}
			dir, err := resolveSession(ctx, optionalArg(args, 0))
			if err != nil {
				return err
			}

			summary, err := runAssembly(cmd.Context(), ctx, cfg, dir, fps, quality)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"session":   dir.Path,
					"run_id":    summary.RunID,
					"frames":    summary.Frames.Count,
					"processed": summary.Frames.Processed,
					"fps":       summary.FPS,
					"quality":   summary.Quality,
					"output":    summary.Output,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.String())
			return nil
		},
	}
}

// runAssembly encodes dir and records the run in the catalog.
func runAssembly(runCtx context.Context, ctx *commandContext, cfg *config.Config, dir session.Directory, fps, quality int) (assembly.Summary, error) {
	assembler := assembly.NewFromConfig(cfg, ctx.loggerValue())
	started := time.Now()
	summary, err := assembler.AssembleSession(runCtx, dir, fps, quality)
	outputs := 0
	if summary.Output != "" {
		outputs = 1
	}
	recordStage(ctx, catalog.StageRun{
		RunID:       summary.RunID,
		SessionPath: dir.Path,
		Phase:       assembly.PhaseName,
		Inputs:      summary.Frames.Count,
		Outputs:     outputs,
		OutputPath:  summary.Output,
		StartedAt:   started,
	}, err)
	return summary, err
}

// recordStage writes run to the catalog. Runs that failed before a session
// log was opened have no run ID and are not recorded.
func recordStage(ctx *commandContext, run catalog.StageRun, runErr error) {
	if run.RunID == "" {
		return
	}
	store := ctx.catalogOrWarn()
	if store == nil {
		return
	}
	run.Status = catalog.StatusCompleted
	switch {
	case runErr != nil:
		run.Status = catalog.StatusFailed
		run.ErrorMessage = runErr.Error()
	case run.Phase == processing.PhaseName && run.Outputs < run.Inputs:
		run.Status = catalog.StatusPartial
	}
	run.FinishedAt = time.Now()
	if err := store.RecordStage(context.Background(), run); err != nil {
		logging.WarnWithContext(ctx.loggerValue(), "failed to catalog stage run", "catalog_write_failed",
			logging.String(logging.FieldPhase, run.Phase),
			logging.Error(err),
		)
	}
}
