package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"podgen/internal/config"
	"podgen/internal/testsupport"
)

const testArtifact = "output/podcast_travel.mp3"

var testAudio = []byte("ID3-fake-audio-bytes")

// fakeService mimics the generation service endpoints the CLI uses.
type fakeService struct {
	mu       sync.Mutex
	fail     string
	artifact string
	delay    time.Duration
	requests []map[string]any
}

func (f *fakeService) setFailure(msg string) {
	f.mu.Lock()
	f.fail = msg
	f.mu.Unlock()
}

func (f *fakeService) setArtifact(ref string) {
	f.mu.Lock()
	f.artifact = ref
	f.mu.Unlock()
}

func (f *fakeService) setDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

func (f *fakeService) generateRequests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.requests...)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/generate-podcast":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.requests = append(f.requests, body)
		fail, artifact, delay := f.fail, f.artifact, f.delay
		f.mu.Unlock()
		if artifact == "" {
			artifact = testArtifact
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		if fail != "" {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error_message": fail})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":          true,
			"audio_file_path":  artifact,
			"duration_seconds": 300.0,
			"topic":            body["topic"],
			"voice_used":       body["voice"],
		})
	case "/api/v1/download/podcast_travel.mp3":
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(testAudio)
	case "/api/v1/voices":
		_, _ = w.Write([]byte(`[{"id":"fable","name":"Fable","description":"Remote fable","best_for":["Stories"]}]`))
	case "/api/v1/tones":
		_, _ = w.Write([]byte(`[{"id":"casual","name":"Casual","description":"Remote casual","best_for":["Chats"]}]`))
	default:
		http.NotFound(w, r)
	}
}

type cliEnv struct {
	cfg        *config.Config
	configPath string
	service    *fakeService
	server     *httptest.Server
}

func setupCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("PODGEN_BASE_URL", "")
	t.Setenv("PODGEN_API_TOKEN", "")
	t.Setenv("PODGEN_NTFY_TOPIC", "")

	service := &fakeService{}
	server := httptest.NewServer(service)
	t.Cleanup(server.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithServiceURL(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	env := &cliEnv{
		cfg:        cfg,
		configPath: filepath.Join(testsupport.BaseDir(cfg), "config.toml"),
		service:    service,
		server:     server,
	}
	env.writeConfig(t)
	return env
}

func (e *cliEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliEnv) runWithInput(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substring string) {
	t.Helper()
	if !strings.Contains(output, substring) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", substring, output)
	}
}
