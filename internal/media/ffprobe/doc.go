// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio sources.
//
// Inspect runs ffprobe against a local path or an HTTP URL; Duration is the
// shortcut the player uses to resolve track metadata.
package ffprobe
