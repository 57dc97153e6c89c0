package podcast

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"podgen/internal/services"
)

const (
	// MaxTopicLength is the longest topic, in characters, the service accepts.
	MaxTopicLength = 500
	// MinDurationMinutes is the shortest target duration.
	MinDurationMinutes = 1
	// DefaultMaxDurationMinutes is the duration cap used when none is configured.
	DefaultMaxDurationMinutes = 10
)

// Parameters holds the user supplied generation inputs.
type Parameters struct {
	Topic           string `json:"topic"`
	Voice           Voice  `json:"voice"`
	Tone            Tone   `json:"tone"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Defaults returns the form values shown to a fresh session.
func Defaults() Parameters {
	return Parameters{
		Voice:           VoiceFable,
		Tone:            ToneStorytelling,
		DurationMinutes: 5,
	}
}

// ValidationError reports a rejected parameter. It matches
// services.ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

// NormalizeTopic canonicalizes unicode and collapses whitespace runs.
func NormalizeTopic(topic string) string {
	return strings.Join(strings.Fields(norm.NFC.String(topic)), " ")
}

// Normalized returns a copy with the topic normalized and the enumerations
// lower-cased.
func (p Parameters) Normalized() Parameters {
	p.Topic = NormalizeTopic(p.Topic)
	p.Voice = Voice(strings.ToLower(strings.TrimSpace(string(p.Voice))))
	p.Tone = Tone(strings.ToLower(strings.TrimSpace(string(p.Tone))))
	return p
}

// Validate checks the parameters against the service limits. maxDuration
// values below MinDurationMinutes fall back to DefaultMaxDurationMinutes.
func (p Parameters) Validate(maxDuration int) error {
	if maxDuration < MinDurationMinutes {
		maxDuration = DefaultMaxDurationMinutes
	}
	topic := NormalizeTopic(p.Topic)
	if topic == "" {
		return &ValidationError{Field: "topic", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return &ValidationError{Field: "topic", Reason: fmt.Sprintf("must be at most %d characters", MaxTopicLength)}
	}
	if !p.Voice.Valid() {
		return &ValidationError{Field: "voice", Reason: fmt.Sprintf("%q is not a supported voice", p.Voice)}
	}
	if !p.Tone.Valid() {
		return &ValidationError{Field: "tone", Reason: fmt.Sprintf("%q is not a supported tone", p.Tone)}
	}
	if p.DurationMinutes < MinDurationMinutes || p.DurationMinutes > maxDuration {
		return &ValidationError{
			Field:  "duration_minutes",
			Reason: fmt.Sprintf("must be between %d and %d", MinDurationMinutes, maxDuration),
		}
	}
	return nil
}
