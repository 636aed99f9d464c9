// Package logging assembles the structured slog loggers used across
// timelapsebox.
//
// It owns the console and JSON handlers, the fan-out handler that tees records
// into several sinks, and SessionLog, the explicit logger handle a pipeline
// phase receives for its session directory. Session logs are append-only and
// carry session_id and phase on every line so capture, processing and assembly
// output can be told apart in session_log.txt.
package logging
