package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"timelapsebox/internal/capture"
	"timelapsebox/internal/services"
	"timelapsebox/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage leftover capture staging folders",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List temp/ folders left behind by interrupted sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dirs, err := staging.ListDirectories(cfg.Paths.DataDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				var totalSize int64
				for _, dir := range dirs {
					totalSize += dir.Size
				}
				return writeJSON(cmd, map[string]any{
					"data_dir":         cfg.Paths.DataDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}

			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				totalSize += dir.Size
				rows = append(rows, []string{dir.Session, formatDuration(age), fmt.Sprintf("%d", dir.Files), formatBytes(dir.Size)})
			}

			fmt.Fprint(out, renderTable(
				[]string{"Session", "Age", "Files", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), formatBytes(totalSize))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale staging folders",
		Long: `Remove temp/ folders that crashed or interrupted capture sessions left
behind. Captured photos in jpg/ and raw/ are never touched.

Refuses to run while a capture session holds the data directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-age") {
				maxAge = staleStagingAge(cfg.Capture.StaleStagingMaxAgeDays)
			}
			if maxAge < 0 {
				return services.Wrap(services.ErrConfiguration, "staging", "clean", "--max-age must not be negative", nil)
			}

			lock := capture.NewLock(cfg.LockPath())
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			result := staging.CleanStale(cmd.Context(), cfg.Paths.DataDir, maxAge, ctx.loggerValue())
			if ctx.JSONMode() {
				return writeStagingCleanJSON(cmd, result)
			}
			printStagingCleanResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Only remove folders untouched for at least this long (default capture.stale_staging_max_age_days)")
	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanStaleResult) {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintln(out, "No stale staging directories to clean")
		if len(result.Skipped) > 0 {
			fmt.Fprintf(out, "Kept %d recent directories (see --max-age)\n", len(result.Skipped))
		}
		return
	}
	fmt.Fprintf(out, "Removed %d staging directories", len(result.Removed))
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, ", %d errors", len(result.Errors))
	}
	fmt.Fprintln(out)
	for _, path := range result.Removed {
		fmt.Fprintf(out, "  %s\n", filepath.Base(filepath.Dir(path)))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
	}
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanStaleResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	removed := result.Removed
	if removed == nil {
		removed = []string{}
	}
	return writeJSON(cmd, map[string]any{
		"removed": removed,
		"skipped": len(result.Skipped),
		"errors":  errs,
	})
}

func staleStagingAge(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
