package logging

import "strings"

const shortIDLength = 8

// FormatSubject builds the session/request subject shown in console output.
func FormatSubject(sessionID, requestID string) string {
	sessionID = shortID(sessionID)
	requestID = shortID(requestID)
	parts := make([]string, 0, 2)
	if sessionID != "" {
		parts = append(parts, "Session "+sessionID)
	}
	if requestID != "" {
		parts = append(parts, "Request "+requestID)
	}
	return strings.Join(parts, " · ")
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}
