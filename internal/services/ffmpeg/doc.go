// Package ffmpeg drives the ffmpeg binary that turns a session's image
// sequence into a video. One Assemble call is one ffmpeg invocation reading a
// glob pattern of JPEG frames.
package ffmpeg
