package podcast

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Voice identifies a text-to-speech narration voice.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// Tone identifies the narrative style of the generated script.
type Tone string

const (
	ToneStorytelling   Tone = "storytelling"
	ToneConversational Tone = "conversational"
	ToneEducational    Tone = "educational"
	ToneEntertaining   Tone = "entertaining"
	ToneProfessional   Tone = "professional"
	ToneCasual         Tone = "casual"
)

var voiceOrder = []Voice{VoiceFable, VoiceAlloy, VoiceEcho, VoiceOnyx, VoiceNova, VoiceShimmer}

var toneOrder = []Tone{ToneStorytelling, ToneConversational, ToneEducational, ToneEntertaining, ToneProfessional, ToneCasual}

// Entry describes one selectable voice or tone.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BestFor     []string `json:"best_for"`
	Personality string   `json:"personality,omitempty"`
}

var voiceCatalog = map[Voice]Entry{
	VoiceAlloy: {
		Description: "A balanced, neutral voice suitable for most content",
		BestFor:     []string{"Educational content", "Professional presentations", "News"},
		Personality: "Professional and trustworthy",
	},
	VoiceEcho: {
		Description: "A warm, friendly voice with natural intonation",
		BestFor:     []string{"Conversational content", "Storytelling", "Casual podcasts"},
		Personality: "Friendly and approachable",
	},
	VoiceFable: {
		Description: "A clear, expressive voice with good pacing",
		BestFor:     []string{"Storytelling", "Narrative content", "Entertainment"},
		Personality: "Engaging and expressive",
	},
	VoiceOnyx: {
		Description: "A deep, authoritative voice with gravitas",
		BestFor:     []string{"Serious topics", "Documentaries", "Professional content"},
		Personality: "Authoritative and serious",
	},
	VoiceNova: {
		Description: "A bright, energetic voice with enthusiasm",
		BestFor:     []string{"Entertainment", "Motivational content", "Youth-oriented content"},
		Personality: "Energetic and enthusiastic",
	},
	VoiceShimmer: {
		Description: "A smooth, melodic voice with natural flow",
		BestFor:     []string{"Relaxing content", "Meditation", "Smooth narration"},
		Personality: "Calm and soothing",
	},
}

var toneCatalog = map[Tone]Entry{
	ToneStorytelling: {
		Description: "Compelling narrative style with engaging stories",
		BestFor:     []string{"Personal stories", "Historical content", "Entertainment"},
	},
	ToneConversational: {
		Description: "Friendly, chatty style like talking to a friend",
		BestFor:     []string{"Casual topics", "Q&A sessions", "Personal content"},
	},
	ToneEducational: {
		Description: "Informative and instructional content",
		BestFor:     []string{"How-to guides", "Educational content", "Tutorials"},
	},
	ToneEntertaining: {
		Description: "Fun and engaging with humor and energy",
		BestFor:     []string{"Entertainment", "Comedy", "Light-hearted topics"},
	},
	ToneProfessional: {
		Description: "Formal and authoritative business style",
		BestFor:     []string{"Business content", "Professional topics", "News"},
	},
	ToneCasual: {
		Description: "Relaxed and informal approach",
		BestFor:     []string{"Lifestyle content", "Personal opinions", "Relaxed topics"},
	},
}

// Voices returns every supported voice, default first.
func Voices() []Voice {
	return append([]Voice(nil), voiceOrder...)
}

// Tones returns every supported tone, default first.
func Tones() []Tone {
	return append([]Tone(nil), toneOrder...)
}

// Valid reports whether v is a supported voice.
func (v Voice) Valid() bool {
	_, ok := voiceCatalog[v]
	return ok
}

// Label returns the display name of the voice.
func (v Voice) Label() string {
	return cases.Title(language.English).String(string(v))
}

// Valid reports whether t is a supported tone.
func (t Tone) Valid() bool {
	_, ok := toneCatalog[t]
	return ok
}

// Label returns the display name of the tone.
func (t Tone) Label() string {
	return cases.Title(language.English).String(string(t))
}

// ParseVoice resolves a case-insensitive voice name.
func ParseVoice(raw string) (Voice, error) {
	v := Voice(strings.ToLower(strings.TrimSpace(raw)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown voice %q (want one of %s)", raw, joinVoices())
	}
	return v, nil
}

// ParseTone resolves a case-insensitive tone name.
func ParseTone(raw string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tone %q (want one of %s)", raw, joinTones())
	}
	return t, nil
}

// VoiceCatalog lists every voice with its description.
func VoiceCatalog() []Entry {
	out := make([]Entry, 0, len(voiceOrder))
	for _, v := range voiceOrder {
		entry := voiceCatalog[v]
		entry.ID = string(v)
		entry.Name = v.Label()
		out = append(out, entry)
	}
	return out
}

// ToneCatalog lists every tone with its description.
func ToneCatalog() []Entry {
	out := make([]Entry, 0, len(toneOrder))
	for _, t := range toneOrder {
		entry := toneCatalog[t]
		entry.ID = string(t)
		entry.Name = t.Label()
		out = append(out, entry)
	}
	return out
}

func joinVoices() string {
	names := make([]string, 0, len(voiceOrder))
	for _, v := range voiceOrder {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}

func joinTones() string {
	names := make([]string, 0, len(toneOrder))
	for _, t := range toneOrder {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
