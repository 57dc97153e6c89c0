package request

import (
	"time"

	"podgen/internal/podcast"
	"podgen/internal/services/generator"
)

// Status is the lifecycle state of the current generation request.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s only changes on reset or a new submission.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Handle identifies one submission.
type Handle struct {
	ID          string
	Parameters  podcast.Parameters
	SubmittedAt time.Time
}

// Outcome is the terminal result of a submission, delivered once.
type Outcome struct {
	Handle      *Handle
	Status      Status
	ArtifactRef string
	Result      generator.Result
	Err         error
	// Message is the user-facing failure text; empty on success.
	Message    string
	FinishedAt time.Time
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Status       Status
	Handle       *Handle
	ArtifactRef  string
	Result       generator.Result
	ErrorMessage string
	Err          error
	FinishedAt   time.Time
}

// HandleID returns the current handle identifier or an empty string.
func (s Snapshot) HandleID() string {
	if s.Handle == nil {
		return ""
	}
	return s.Handle.ID
}
