package preflight

import (
	"context"

	"timelapsebox/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory and lock checks for the given config.
// Binary checks live in CheckSystemDeps and the camera probe in
// ProbeCamera; both spawn processes and are run separately.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCaptureLock(cfg.LockPath()),
	}
	if cfg.Processing.Transform == config.TransformCommand && len(cfg.Processing.Command) > 0 {
		results = append(results, CheckCommand("Processing command", cfg.Processing.Command[0]))
	}
	return results
}
