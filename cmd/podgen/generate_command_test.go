package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"podgen/internal/history"
	"podgen/internal/request"
	"podgen/internal/services"
	"podgen/internal/session"
)

func TestGeneratePrintsDownloadURLAndRecordsHistory(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := env.run(t, "generate", "--voice", "Nova", "--duration", "3", "Travel", "in", "Japan")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	requireContains(t, out, `Generating 3 minute podcast about "Travel in Japan" (Nova, Storytelling)`)
	requireContains(t, out, "Podcast ready: "+env.server.URL+"/api/v1/download/podcast_travel.mp3")

	reqs := env.service.generateRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected one generate request, got %d", len(reqs))
	}
	if reqs[0]["topic"] != "Travel in Japan" || reqs[0]["voice"] != "nova" || reqs[0]["tone"] != "storytelling" || reqs[0]["duration_minutes"] != float64(3) {
		t.Fatalf("unexpected request body %v", reqs[0])
	}

	out, _, err = env.run(t, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Topic != "Travel in Japan" || !entries[0].Success || entries[0].ArtifactRef != testArtifact {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestGenerateJSONOutputsView(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := env.run(t, "generate", "--json", "Coral reefs")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var view session.View
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode view: %v\n%s", err, out)
	}
	if view.RequestStatus != request.StatusSucceeded || view.ArtifactRef != testArtifact {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Player || view.Placeholder {
		t.Fatalf("headless generate must not show a player, got %+v", view)
	}
	if !strings.HasSuffix(view.DownloadURL, "/api/v1/download/podcast_travel.mp3") {
		t.Fatalf("unexpected download url %q", view.DownloadURL)
	}
}

func TestGenerateFailureReturnsServiceMessage(t *testing.T) {
	env := setupCLIEnv(t)
	env.service.setFailure("TTS quota exhausted")

	_, _, err := env.run(t, "generate", "Tea")
	if err == nil {
		t.Fatal("expected generate to fail")
	}
	if !strings.Contains(err.Error(), "TTS quota exhausted") {
		t.Fatalf("unexpected error %v", err)
	}

	out, _, err := env.run(t, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].Success {
		t.Fatalf("expected one failed entry, got %+v", entries)
	}
}

func TestGeneratePlayStopsWhenArtifactCannotBeResolved(t *testing.T) {
	env := setupCLIEnv(t)
	env.service.setArtifact("output/")

	started := time.Now()
	out, _, err := env.run(t, "generate", "--play", "Coral", "reefs")
	if err == nil {
		t.Fatalf("expected generate to fail\n%s", out)
	}
	if errors.Is(err, context.DeadlineExceeded) || time.Since(started) > 10*time.Second {
		t.Fatalf("generate did not stop on the load failure: %v", err)
	}
	if !strings.Contains(err.Error(), services.UserMessage(services.ErrPlaybackLoad)) {
		t.Fatalf("unexpected error %v", err)
	}
	if strings.Contains(out, "Playing") {
		t.Fatalf("playback must not start without a download URL\n%s", out)
	}
}

func TestGenerateJSONReportsLoadError(t *testing.T) {
	env := setupCLIEnv(t)
	env.service.setArtifact("output/")

	out, _, err := env.run(t, "generate", "--json", "Coral reefs")
	if err == nil {
		t.Fatal("expected generate to fail")
	}
	var view session.View
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode view: %v\n%s", err, out)
	}
	if view.RequestStatus != request.StatusSucceeded || view.DownloadURL != "" || view.LoadError == "" {
		t.Fatalf("expected load error on the view, got %+v", view)
	}
}

func TestGenerateRejectsBlankTopicWithoutCallingService(t *testing.T) {
	env := setupCLIEnv(t)

	if _, _, err := env.run(t, "generate", "   "); err == nil {
		t.Fatal("expected blank topic to be rejected")
	}
	if got := len(env.service.generateRequests()); got != 0 {
		t.Fatalf("expected no service calls, got %d", got)
	}
}

func TestGenerateRejectsUnknownVoice(t *testing.T) {
	env := setupCLIEnv(t)

	_, _, err := env.run(t, "generate", "--voice", "robot", "Tea")
	if err == nil || !strings.Contains(err.Error(), "unknown voice") {
		t.Fatalf("expected unknown voice error, got %v", err)
	}
}

func TestGenerateRejectsDurationAboveCap(t *testing.T) {
	env := setupCLIEnv(t)

	if _, _, err := env.run(t, "generate", "--duration", "45", "Tea"); err == nil {
		t.Fatal("expected duration above the cap to be rejected")
	}
	if got := len(env.service.generateRequests()); got != 0 {
		t.Fatalf("expected no service calls, got %d", got)
	}
}
