package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrRequestFailure = errors.New("request failure")
	ErrTimeout        = errors.New("timeout")
	ErrPlaybackLoad   = errors.New("playback load error")
	ErrInconsistency  = errors.New("internal inconsistency")
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRequestFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRequestFailure reports whether err ended a generation request. Timeouts
// count as request failures.
func IsRequestFailure(err error) bool {
	return errors.Is(err, ErrRequestFailure) || errors.Is(err, ErrTimeout)
}

// UserMessage maps an error to the short text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Please check the podcast details and try again."
	case errors.Is(err, ErrTimeout):
		return "The podcast service took too long to respond. Please try again."
	case errors.Is(err, ErrRequestFailure):
		return "Error generating podcast. Please try again."
	case errors.Is(err, ErrPlaybackLoad):
		return "The podcast audio could not be loaded."
	case errors.Is(err, ErrConfiguration):
		return "podgen is misconfigured; run 'podgen config show'."
	default:
		return "Something went wrong. Please try again."
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
