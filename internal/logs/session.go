package logs

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"timelapsebox/internal/logging"
	"timelapsebox/internal/services"
)

// Phases lists the phases that write their own log file.
var Phases = []string{"capture", "processing", "assembly"}

// SessionFile returns the log file inside sessionDir for phase; an empty
// phase selects the combined session_log.txt.
func SessionFile(sessionDir, phase string) (string, error) {
	phase = strings.ToLower(strings.TrimSpace(phase))
	if phase == "" {
		return filepath.Join(sessionDir, logging.SessionLogName), nil
	}
	if !slices.Contains(Phases, phase) {
		return "", services.Wrap(services.ErrConfiguration, "logs", "phase",
			fmt.Sprintf("unknown phase %q (want one of %s)", phase, strings.Join(Phases, ", ")), nil)
	}
	return filepath.Join(sessionDir, logging.PhaseLogName(phase)), nil
}
