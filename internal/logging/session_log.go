package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SessionLogName is the combined log every phase of a session appends to.
const SessionLogName = "session_log.txt"

// PhaseLogName returns the per-phase log file name, e.g. capture_log.txt.
func PhaseLogName(phase string) string {
	return strings.ToLower(strings.TrimSpace(phase)) + "_log.txt"
}

// SessionLog is the logger handle bound to one session directory and phase.
// Records go to the base logger, session_log.txt and <phase>_log.txt, each
// stamped with session_id and phase.
type SessionLog struct {
	Logger *slog.Logger
	RunID  string
	Phase  string
	Dir    string

	files []*os.File
}

// OpenSessionLog opens (creating if needed) the session and phase log files
// inside sessionDir. Files are only ever appended to. format selects "json"
// or the console line format.
func OpenSessionLog(base *slog.Logger, sessionDir, phase, format string) (*SessionLog, error) {
	phase = strings.ToLower(strings.TrimSpace(phase))
	if phase == "" {
		return nil, errors.New("session log: phase is required")
	}
	if strings.TrimSpace(sessionDir) == "" {
		return nil, errors.New("session log: session directory is required")
	}

	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)

	log := &SessionLog{RunID: uuid.NewString(), Phase: phase, Dir: sessionDir}
	handlers := make([]slog.Handler, 0, 3)
	if base != nil {
		handlers = append(handlers, base.Handler())
	}
	for _, name := range []string{SessionLogName, PhaseLogName(phase)} {
		file, err := openAppend(filepath.Join(sessionDir, name))
		if err != nil {
			_ = log.Close()
			return nil, fmt.Errorf("session log: %w", err)
		}
		log.files = append(log.files, file)
		if strings.EqualFold(strings.TrimSpace(format), "json") {
			handlers = append(handlers, newJSONHandler(file, level, false))
		} else {
			handlers = append(handlers, newPrettyHandler(file, level, false, false))
		}
	}

	handler := newSessionIDHandler(newFanoutHandler(handlers...), log.RunID)
	log.Logger = slog.New(handler).With(String(FieldPhase, phase))
	return log, nil
}

// Close flushes and closes the underlying log files. Logging through Logger
// after Close still reaches the base logger.
func (s *SessionLog) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, file := range s.files {
		if err := file.Sync(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
