package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StageRun records one processing or assembly run over a session.
type StageRun struct {
	ID           int64
	RunID        string
	SessionPath  string
	Phase        string
	Status       Status
	Inputs       int
	Outputs      int
	OutputPath   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RecordStage inserts a finished stage run.
func (s *Store) RecordStage(ctx context.Context, run StageRun) error {
	if run.RunID == "" || run.SessionPath == "" || run.Phase == "" {
		return errors.New("catalog: run id, session path and phase are required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	_, err := s.exec(ctx,
		`INSERT INTO stage_runs (run_id, session_path, phase, status, inputs, outputs, output_path, error_message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.SessionPath,
		run.Phase,
		run.Status,
		run.Inputs,
		run.Outputs,
		nullableString(run.OutputPath),
		nullableString(run.ErrorMessage),
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert stage run: %w", err)
	}
	return nil
}

// StageRuns lists the runs recorded for a session path, oldest first.
func (s *Store) StageRuns(ctx context.Context, sessionPath string) ([]StageRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, session_path, phase, status, inputs, outputs, output_path, error_message, started_at, finished_at
         FROM stage_runs WHERE session_path = ? ORDER BY started_at, id`, sessionPath)
	if err != nil {
		return nil, fmt.Errorf("list stage runs: %w", err)
	}
	defer rows.Close()

	var runs []StageRun
	for rows.Next() {
		var (
			run        StageRun
			status     string
			outputPath sql.NullString
			errorMsg   sql.NullString
			startedRaw sql.NullString
			finished   sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.RunID, &run.SessionPath, &run.Phase, &status,
			&run.Inputs, &run.Outputs, &outputPath, &errorMsg, &startedRaw, &finished); err != nil {
			return nil, err
		}
		run.Status = Status(status)
		run.OutputPath = outputPath.String
		run.ErrorMessage = errorMsg.String
		run.StartedAt = parseTime(startedRaw)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestOutputs maps each session path to its newest successful assembly
// output.
func (s *Store) LatestOutputs(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_path, output_path FROM stage_runs
         WHERE phase = 'assembly' AND status = ? AND output_path IS NOT NULL
         ORDER BY finished_at, id`, StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("latest outputs: %w", err)
	}
	defer rows.Close()

	outputs := make(map[string]string)
	for rows.Next() {
		var path, output string
		if err := rows.Scan(&path, &output); err != nil {
			return nil, err
		}
		outputs[path] = output
	}
	return outputs, rows.Err()
}
