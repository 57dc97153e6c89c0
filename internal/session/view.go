package session

import (
	"podgen/internal/playback"
	"podgen/internal/podcast"
	"podgen/internal/request"
)

// View is the presentation state of a session.
type View struct {
	SessionID     string             `json:"session_id"`
	RequestStatus request.Status     `json:"request_status"`
	RequestID     string             `json:"request_id,omitempty"`
	ArtifactRef   string             `json:"artifact_ref,omitempty"`
	Playback      playback.Snapshot  `json:"playback"`
	Form          podcast.Parameters `json:"form"`
	// Visible is true while the placeholder or the player is shown.
	Visible     bool   `json:"visible"`
	Placeholder bool   `json:"placeholder"`
	Player      bool   `json:"player"`
	CanSubmit   bool   `json:"can_submit"`
	DownloadURL string `json:"download_url,omitempty"`
	// LoadError is set when a successful artifact could not be resolved or
	// loaded into playback.
	LoadError string `json:"load_error,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Derive computes the visibility flags from the request status and the
// playback state.
func Derive(status request.Status, state playback.State) View {
	placeholder := status == request.StatusSubmitting
	player := state != playback.StateEmpty
	return View{
		RequestStatus: status,
		Visible:       placeholder || player,
		Placeholder:   placeholder,
		Player:        player,
		CanSubmit:     status != request.StatusSubmitting,
	}
}
