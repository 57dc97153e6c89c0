package playback

import (
	"fmt"
	"math"
)

// State is the playback lifecycle state.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// Seekable reports whether the duration is resolved and seeking applies.
func (s State) Seekable() bool {
	switch s {
	case StateReady, StatePlaying, StatePaused, StateEnded:
		return true
	default:
		return false
	}
}

// Snapshot is a copy of the playback session.
type Snapshot struct {
	State           State   `json:"state"`
	Source          string  `json:"source,omitempty"`
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	// Err is the last load error; set only in Empty after a failed load.
	Err error `json:"-"`
	// Seq increases with every snapshot taken. Listeners receive snapshots
	// outside the controller lock and drop any older than one already seen.
	Seq uint64 `json:"-"`
}

// Progress returns the playback position as a percentage of the duration.
func (s Snapshot) Progress() float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return s.PositionSeconds / s.DurationSeconds * 100
}

// FormatTime renders seconds as m:ss. Non-finite or negative values render
// as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
