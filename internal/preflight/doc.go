// Package preflight checks that timelapsebox can run on this machine: the
// data and log directories are usable, gphoto2 and ffmpeg are installed, a
// camera is visible, and no other capture holds the data directory.
//
// Each check yields a Result; callers render them for the status command.
package preflight
