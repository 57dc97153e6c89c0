// Package playback drives the audio playback state machine for one generated
// artifact.
//
// The Controller moves between Empty, Loading, Ready, Playing, Paused and
// Ended. It owns the Track opened from a Media primitive and closes it on
// Release, on a new Load and on load errors. Every Load binds a fresh Events
// receiver; callbacks arriving through a binding that has since been released
// or replaced are dropped and logged.
//
// Commands (Load, Play, Pause, Seek, Release) are serialized. Track methods
// are always called without the state lock held, so a primitive may deliver
// callbacks from its own goroutines at any time.
package playback
