// Package assembly turns a session's frames into a video with ffmpeg.
//
// Frames come from processed/processed_*.jpg when processing has run and
// from jpg/*.jpg otherwise. The encoder binary is checked before it is
// invoked, and a non-zero encoder exit fails the stage with
// services.ErrEncoding; the partial output is removed.
package assembly
