// Package services defines shared utilities consumed by the pipeline stages
// and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, phase names, and capture attempt
//     numbers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (configuration, capture, encoding, filesystem).
//
// Subpackages wrap the external programs the pipeline drives: gphoto2 for
// capture and ffmpeg for video assembly.
package services
