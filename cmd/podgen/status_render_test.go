package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"podgen/internal/deps"
	"podgen/internal/playback"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Generator", statusError, "unreachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Generator:", "[ERROR] unreachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Generator", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Requirement: deps.Requirement{Name: "Player", Command: "ffplay"}, Detail: `binary "ffplay" not found`},
		{Requirement: deps.Requirement{Name: "FFprobe", Command: "ffprobe"}, Available: true},
		{Requirement: deps.Requirement{Name: "Extra", Optional: true}},
	}
	lines, missing := dependencyLines(statuses, false)
	if missing != 1 {
		t.Fatalf("expected one missing dependency, got %d", missing)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], `[ERROR] binary "ffplay" not found`) {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: ffprobe)") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not available") {
		t.Fatalf("unexpected third line %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") || !strings.Contains(lines[3], "Player") {
		t.Fatalf("unexpected summary line %q", lines[3])
	}
}

func TestRenderProgress(t *testing.T) {
	got := renderProgress(playback.Snapshot{State: playback.StatePlaying, PositionSeconds: 150, DurationSeconds: 300})
	want := "▶ [" + strings.Repeat("#", 15) + strings.Repeat("-", 15) + "] 2:30 / 5:00"
	if got != want {
		t.Fatalf("renderProgress = %q, want %q", got, want)
	}
	empty := renderProgress(playback.Snapshot{State: playback.StateEmpty})
	if !strings.HasPrefix(empty, "■ [") || !strings.HasSuffix(empty, "0:00 / 0:00") {
		t.Fatalf("unexpected empty progress %q", empty)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "only") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
