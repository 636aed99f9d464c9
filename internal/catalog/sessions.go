package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timelapsebox/internal/services"
)

// Status is the lifecycle state of a catalogued capture session.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusPartial     Status = "partial"
	StatusCancelled   Status = "cancelled"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Session is one catalogued capture run.
type Session struct {
	ID             int64
	RunID          string
	Name           string
	Path           string
	Status         Status
	Duration       time.Duration
	TotalShots     int
	ShotsCaptured  int
	Attempts       int
	Failures       int
	Overruns       int
	StopReason     string
	ConfigSnapshot bool
	ErrorMessage   string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// SessionStart is recorded when a capture session begins.
type SessionStart struct {
	RunID      string
	Name       string
	Path       string
	Duration   time.Duration
	TotalShots int
	StartedAt  time.Time
}

// SessionFinish is recorded when a capture session ends.
type SessionFinish struct {
	Status         Status
	ShotsCaptured  int
	Attempts       int
	Failures       int
	Overruns       int
	StopReason     string
	ConfigSnapshot bool
	ErrorMessage   string
	FinishedAt     time.Time
}

// StartSession inserts a running session row.
func (s *Store) StartSession(ctx context.Context, start SessionStart) error {
	if start.RunID == "" || start.Path == "" {
		return errors.New("catalog: run id and path are required")
	}
	if start.StartedAt.IsZero() {
		start.StartedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO sessions (run_id, name, path, status, duration_ms, total_shots, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		start.RunID,
		start.Name,
		start.Path,
		StatusRunning,
		start.Duration.Milliseconds(),
		start.TotalShots,
		formatTime(start.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinishSession stores the outcome of the session identified by runID.
func (s *Store) FinishSession(ctx context.Context, runID string, finish SessionFinish) error {
	if finish.FinishedAt.IsZero() {
		finish.FinishedAt = time.Now()
	}
	snapshot := 0
	if finish.ConfigSnapshot {
		snapshot = 1
	}
	res, err := s.exec(ctx,
		`UPDATE sessions SET status = ?, shots_captured = ?, attempts = ?, failures = ?, overruns = ?,
            stop_reason = ?, config_snapshot = ?, error_message = ?, finished_at = ?
         WHERE run_id = ?`,
		finish.Status,
		finish.ShotsCaptured,
		finish.Attempts,
		finish.Failures,
		finish.Overruns,
		nullableString(finish.StopReason),
		snapshot,
		nullableString(finish.ErrorMessage),
		formatTime(finish.FinishedAt),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "finish session", "unknown run id "+runID, nil)
	}
	return nil
}

// MarkInterrupted flags sessions still recorded as running. Call it only
// while holding the capture lock, when no session can legitimately be
// running.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE sessions SET status = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		StatusInterrupted,
		"process exited before the session finished",
		formatTime(time.Now()),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

const sessionColumns = "id, run_id, name, path, status, duration_ms, total_shots, shots_captured, attempts, failures, overruns, stop_reason, config_snapshot, error_message, started_at, finished_at"

// ListSessions returns up to limit sessions, newest first. A limit of zero
// or less returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// SessionByRunID fetches one session.
func (s *Store) SessionByRunID(ctx context.Context, runID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE run_id = ?`, runID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, services.Wrap(services.ErrNotFound, "catalog", "get session", "unknown run id "+runID, err)
	}
	return session, err
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (Session, error) {
	var (
		session    Session
		status     string
		durationMS int64
		stopReason sql.NullString
		snapshot   int
		errorMsg   sql.NullString
		startedRaw sql.NullString
		finished   sql.NullString
	)
	if err := scanner.Scan(
		&session.ID,
		&session.RunID,
		&session.Name,
		&session.Path,
		&status,
		&durationMS,
		&session.TotalShots,
		&session.ShotsCaptured,
		&session.Attempts,
		&session.Failures,
		&session.Overruns,
		&stopReason,
		&snapshot,
		&errorMsg,
		&startedRaw,
		&finished,
	); err != nil {
		return Session{}, err
	}
	session.Status = Status(status)
	session.Duration = time.Duration(durationMS) * time.Millisecond
	session.StopReason = stopReason.String
	session.ConfigSnapshot = snapshot != 0
	session.ErrorMessage = errorMsg.String
	session.StartedAt = parseTime(startedRaw)
	session.FinishedAt = parseTime(finished)
	return session, nil
}
