package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"timelapsebox/internal/catalog"
	"timelapsebox/internal/session"
)

const statusUncatalogued = "uncatalogued"

// sessionRow joins a catalog entry with what is on disk for the same path.
type sessionRow struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	RunID         string    `json:"run_id,omitempty"`
	Status        string    `json:"status"`
	StopReason    string    `json:"stop_reason,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	TotalShots    int       `json:"total_shots"`
	ShotsCaptured int       `json:"shots_captured"`
	Failures      int       `json:"failures"`
	JPGFiles      int       `json:"jpg_files"`
	RAWFiles      int       `json:"raw_files"`
	Processed     int       `json:"processed_files"`
	Video         string    `json:"video,omitempty"`
	OnDisk        bool      `json:"on_disk"`
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions [directory]",
		Short: "List capture sessions and their processing history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showSession(cmd, ctx, args[0])
			}
			rows, err := collectSessions(cmd, ctx, limit)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				if rows == nil {
					rows = []sessionRow{}
				}
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}
			title := cases.Title(language.English)
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				video := "-"
				if row.Video != "" {
					video = filepath.Base(row.Video)
				}
				table = append(table, []string{
					row.Name,
					title.String(row.Status),
					formatTimestamp(row.StartedAt),
					fmt.Sprintf("%d/%d", row.ShotsCaptured, row.TotalShots),
					strconv.Itoa(row.Failures),
					strconv.Itoa(row.Processed),
					video,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Session", "Status", "Started", "Shots", "Failed", "Processed", "Video"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of catalogued sessions to show (0 for all)")
	return cmd
}

func collectSessions(cmd *cobra.Command, ctx *commandContext, limit int) ([]sessionRow, error) {
	manager, err := ctx.sessionManager()
	if err != nil {
		return nil, err
	}
	infos, err := manager.List()
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]session.Info, len(infos))
	for _, info := range infos {
		onDisk[info.Path] = info
	}

	var rows []sessionRow
	seen := make(map[string]bool)
	if store := ctx.catalogOrWarn(); store != nil {
		sessions, err := store.ListSessions(cmd.Context(), limit)
		if err != nil {
			return nil, err
		}
		outputs, err := store.LatestOutputs(cmd.Context())
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			row := sessionRow{
				Name:          s.Name,
				Path:          s.Path,
				RunID:         s.RunID,
				Status:        string(s.Status),
				StopReason:    s.StopReason,
				StartedAt:     s.StartedAt,
				TotalShots:    s.TotalShots,
				ShotsCaptured: s.ShotsCaptured,
				Failures:      s.Failures,
				Video:         outputs[s.Path],
			}
			if info, ok := onDisk[s.Path]; ok {
				applyDiskInfo(&row, info)
			}
			seen[s.Path] = true
			rows = append(rows, row)
		}
	}
	for _, info := range infos {
		if seen[info.Path] {
			continue
		}
		row := sessionRow{
			Name:          info.Name,
			Path:          info.Path,
			Status:        statusUncatalogued,
			StartedAt:     info.Started,
			ShotsCaptured: info.JPGCount,
		}
		applyDiskInfo(&row, info)
		rows = append(rows, row)
	}
	return rows, nil
}

func applyDiskInfo(row *sessionRow, info session.Info) {
	row.OnDisk = true
	row.JPGFiles = info.JPGCount
	row.RAWFiles = info.RAWCount
	row.Processed = info.ProcessedCount
	if row.Video == "" && len(info.Videos) > 0 {
		row.Video = info.Videos[len(info.Videos)-1]
	}
}

func showSession(cmd *cobra.Command, ctx *commandContext, arg string) error {
	dir, err := resolveSession(ctx, arg)
	if err != nil {
		return err
	}
	var runs []catalog.StageRun
	if store := ctx.catalogOrWarn(); store != nil {
		if runs, err = store.StageRuns(cmd.Context(), dir.Path); err != nil {
			return err
		}
	}
	if ctx.JSONMode() {
		if runs == nil {
			runs = []catalog.StageRun{}
		}
		return writeJSON(cmd, map[string]any{"session": dir.Path, "stage_runs": runs})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session: %s\n", dir.Path)
	if len(runs) == 0 {
		fmt.Fprintln(out, "No processing or assembly runs recorded")
		return nil
	}
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		output := run.OutputPath
		if run.ErrorMessage != "" {
			output = run.ErrorMessage
		}
		rows = append(rows, []string{
			title.String(run.Phase),
			title.String(string(run.Status)),
			formatTimestamp(run.FinishedAt),
			fmt.Sprintf("%d/%d", run.Outputs, run.Inputs),
			output,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Phase", "Status", "Finished", "Out/In", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}
