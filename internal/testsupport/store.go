package testsupport

import (
	"context"
	"testing"
	"time"

	"podgen/internal/config"
	"podgen/internal/history"
)

// MustOpenHistory opens the history store described by cfg and closes it when
// the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close history: %v", err)
		}
	})
	return store
}

// SeedHistory records one entry per topic, oldest first and one minute apart,
// ending at now. Odd positions are recorded as failures.
func SeedHistory(t testing.TB, store *history.Store, now time.Time, topics ...string) []history.Entry {
	t.Helper()

	out := make([]history.Entry, 0, len(topics))
	for i, topic := range topics {
		entry := history.Entry{
			RequestID:       "seed-" + topic,
			Topic:           topic,
			Voice:           "fable",
			Tone:            "storytelling",
			DurationMinutes: 5,
			Success:         i%2 == 0,
			CreatedAt:       now.Add(-time.Duration(len(topics)-1-i) * time.Minute),
		}
		if entry.Success {
			entry.ArtifactRef = "podcast_" + topic + ".mp3"
		} else {
			entry.ErrorMessage = "Failed to generate podcast. Try again."
		}
		recorded, err := store.Record(context.Background(), entry)
		if err != nil {
			t.Fatalf("seed history %q: %v", topic, err)
		}
		out = append(out, recorded)
	}
	return out
}
