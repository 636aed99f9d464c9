// Package logs reads session and process log files for the logs command.
//
// It streams log files with bounded memory usage, supports negative offsets
// for "tail last N lines" operations, and powers `timelapsebox logs
// --follow`, waking on fsnotify write events instead of polling. Callers
// supply contexts so following stops cleanly when the CLI exits.
package logs
