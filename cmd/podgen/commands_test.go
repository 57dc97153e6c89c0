package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podgen/internal/history"
	"podgen/internal/podcast"
	"podgen/internal/session"
	"podgen/internal/testsupport"
)

func TestVoicesListsLocalCatalog(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := env.run(t, "voices")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	for _, entry := range podcast.VoiceCatalog() {
		requireContains(t, out, entry.ID)
	}
	requireContains(t, out, "Description")
}

func TestTonesRemoteJSON(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := env.run(t, "tones", "--remote", "--json")
	if err != nil {
		t.Fatalf("tones: %v", err)
	}
	var entries []podcast.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode tones: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "Remote casual" {
		t.Fatalf("unexpected remote tones %+v", entries)
	}
}

func TestDownloadLatestGeneration(t *testing.T) {
	env := setupCLIEnv(t)
	if _, _, err := env.run(t, "generate", "Travel"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	dir := t.TempDir()
	out, _, err := env.run(t, "download", "--output", dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	want := filepath.Join(dir, "podcast_travel.mp3")
	requireContains(t, out, "Saved "+want)
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !bytes.Equal(data, testAudio) {
		t.Fatalf("unexpected download contents %q", data)
	}

	out, _, err = env.run(t, "download", "--json", "--output", dir, testArtifact)
	if err != nil {
		t.Fatalf("second download: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode download: %v", err)
	}
	if result["path"] != filepath.Join(dir, "podcast_travel (1).mp3") || result["bytes"] != float64(len(testAudio)) {
		t.Fatalf("unexpected download result %v", result)
	}
}

func TestDownloadWithoutHistoryFails(t *testing.T) {
	env := setupCLIEnv(t)

	_, _, err := env.run(t, "download")
	if err == nil || !strings.Contains(err.Error(), "no successful generation") {
		t.Fatalf("expected missing artifact error, got %v", err)
	}
}

func TestHistoryPrefsAndClear(t *testing.T) {
	env := setupCLIEnv(t)
	for _, args := range [][]string{
		{"generate", "--voice", "nova", "Tea"},
		{"generate", "--voice", "nova", "--tone", "casual", "Coffee"},
		{"generate", "--voice", "echo", "Cocoa"},
	} {
		if _, _, err := env.run(t, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, _, err := env.run(t, "history", "prefs", "--json")
	if err != nil {
		t.Fatalf("history prefs: %v", err)
	}
	var prefs history.Preferences
	if err := json.Unmarshal([]byte(out), &prefs); err != nil {
		t.Fatalf("decode prefs: %v", err)
	}
	if prefs.TotalGenerations != 3 || prefs.PreferredVoice != "nova" || prefs.PreferredTone != "storytelling" || prefs.SuccessRate != 100 {
		t.Fatalf("unexpected prefs %+v", prefs)
	}

	out, _, err = env.run(t, "history", "list", "--voice", "echo")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "Cocoa")
	if strings.Contains(out, "Coffee") {
		t.Fatalf("voice filter leaked other entries:\n%s", out)
	}

	out, _, err = env.run(t, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 3 entries")

	out, _, err = env.run(t, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No generations recorded")
}

func TestHistoryListTableShowsFailures(t *testing.T) {
	env := setupCLIEnv(t)
	store := testsupport.MustOpenHistory(t, env.cfg)
	testsupport.SeedHistory(t, store, time.Now(), "Tea", "Coffee")

	out, _, err := env.run(t, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "podcast_Tea.mp3")
	requireContains(t, out, "failed: Failed to generate podcast")
	if strings.Index(out, "Coffee") > strings.Index(out, "Tea") {
		t.Fatalf("expected newest entry first:\n%s", out)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLIEnv(t)
	env.cfg.History.Enabled = false
	env.writeConfig(t)

	_, _, err := env.run(t, "history", "list")
	if !errors.Is(err, errHistoryDisabled) {
		t.Fatalf("expected history disabled error, got %v", err)
	}
	if _, _, err := env.run(t, "generate", "Tea"); err != nil {
		t.Fatalf("generate without history: %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(t.TempDir(), "podgen", "config.toml")

	out, _, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	out, _, err = env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, env.server.URL)

	out, _, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowMasksToken(t *testing.T) {
	env := setupCLIEnv(t)
	env.cfg.Service.APIToken = "super-secret"
	env.writeConfig(t)

	out, _, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("token leaked:\n%s", out)
	}
}

func TestDoctorReportsHealthySetup(t *testing.T) {
	env := setupCLIEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := env.run(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK] Ready (command: ffplay)")
	requireContains(t, out, "[OK] Ready (command: ffprobe)")
	requireContains(t, out, "[OK] "+env.server.URL)
}

func TestDoctorFlagsUnreachableService(t *testing.T) {
	env := setupCLIEnv(t, testsupport.WithStubbedBinaries())
	env.server.Close()

	out, _, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to report a problem")
	}
	requireContains(t, out, "unreachable")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := env.run(t, "test-notify")
	if err == nil {
		t.Fatal("expected test-notify to fail without a topic")
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestStudioSessionGeneratesAndResets(t *testing.T) {
	env := setupCLIEnv(t)
	bin := filepath.Join(testsupport.BaseDir(env.cfg), "bin")
	env.cfg.Playback.FFprobeBinary = testsupport.WriteScript(t, bin, "ffprobe",
		`printf '{"streams":[{"codec_type":"audio","duration":"300"}],"format":{"duration":"300"}}'`+"\n")
	env.cfg.Playback.PlayerCommand = testsupport.WriteScript(t, bin, "player", "sleep 5\n")
	env.writeConfig(t)

	script := strings.Join([]string{
		"topic Travel in Japan",
		"voice nova",
		"duration 3",
		"form",
		"submit",
		"wait",
		"download",
		"bogus",
		"reset",
		"form",
		"quit",
	}, "\n") + "\n"

	out, _, err := env.runWithInput(t, script, "studio", "--no-autoplay")
	if err != nil {
		t.Fatalf("studio: %v\n%s", err, out)
	}
	requireContains(t, out, `topic="Travel in Japan" voice=nova tone=storytelling duration=3`)
	requireContains(t, out, env.server.URL+"/api/v1/download/podcast_travel.mp3")
	requireContains(t, out, `error: unknown command "bogus"`)
	requireContains(t, out, "Session reset.")
	requireContains(t, out, `topic="" voice=fable tone=storytelling duration=5`)

	reqs := env.service.generateRequests()
	if len(reqs) != 1 || reqs[0]["voice"] != "nova" {
		t.Fatalf("unexpected requests %v", reqs)
	}
}

func TestStudioRejectsSubmitWhileGenerating(t *testing.T) {
	env := setupCLIEnv(t)
	env.service.setDelay(500 * time.Millisecond)
	bin := filepath.Join(testsupport.BaseDir(env.cfg), "bin")
	env.cfg.Playback.FFprobeBinary = testsupport.WriteScript(t, bin, "ffprobe", "exit 1\n")
	env.cfg.Playback.PlayerCommand = testsupport.WriteScript(t, bin, "player", "sleep 5\n")
	env.writeConfig(t)

	script := "submit First\nsubmit Second\nwait\nform\nquit\n"
	out, _, err := env.runWithInput(t, script, "studio", "--no-autoplay")
	if err != nil {
		t.Fatalf("studio: %v\n%s", err, out)
	}
	requireContains(t, out, "error: "+errSubmitPending.Error())
	requireContains(t, out, `topic="First"`)

	reqs := env.service.generateRequests()
	if len(reqs) != 1 || reqs[0]["topic"] != "First" {
		t.Fatalf("expected a single request for the first topic, got %v", reqs)
	}
}

func TestStudioRefusesSecondSession(t *testing.T) {
	env := setupCLIEnv(t)

	lock, err := session.AcquireLock(env.cfg.SessionLockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, _, err = env.runWithInput(t, "quit\n", "studio")
	if !errors.Is(err, session.ErrSessionActive) {
		t.Fatalf("expected session active error, got %v", err)
	}
}
