// Package capture runs a timelapse session: it creates the session
// directory, snapshots the camera configuration, and fires one capture
// attempt per interval until the shot target or the duration is reached.
//
// The scheduler loop goroutine is the only owner of session progress.
// Attempts run in their own goroutine, one at a time; a tick that finds the
// previous attempt still running is skipped and logged as an overrun.
package capture
