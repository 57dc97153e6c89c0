// Package player plays generated podcasts through an external command-line
// player (ffplay by default) and resolves track duration with ffprobe.
//
// A Player satisfies playback.Media. Each opened track probes its source in
// the background, then starts, stops and restarts the player process as the
// playback controller issues commands. The external player has no pause
// control, so Pause stops the process and remembers the position and Play
// restarts it with a seek offset. Position updates are derived from the
// wall clock at the configured tick interval.
package player
