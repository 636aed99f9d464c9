// Package gphoto2 wraps the gphoto2 command line tool: one capture per
// invocation into a caller-owned staging folder, camera detection, and the
// camera configuration dump written at session start.
//
// The Executor interface lets tests replace the real process with a stub that
// drops files into the staging folder.
package gphoto2
