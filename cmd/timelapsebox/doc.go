// Package main hosts the timelapsebox CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the capture
// scheduler, the processing and assembly stages, the session catalog, and
// the log viewer. It owns configuration resolution and logger setup so the
// internal packages stay free of flag handling.
package main
