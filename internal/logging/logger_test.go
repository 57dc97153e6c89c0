package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podgen/internal/config"
	"podgen/internal/logging"
	"podgen/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message", logging.String("k", "v"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now())))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", data, err)
	}
	if record["msg"] != "debug message" || record["level"] != "debug" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without source")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
	if !strings.Contains(string(content), "message without source") {
		t.Fatalf("expected message in output, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWithContextAddsIdentifiers(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithSessionID(context.Background(), "sess-1")
	ctx = services.WithRequestID(ctx, "req-9")
	logging.WithContext(ctx, logger).Info("hello")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{`"session_id":"sess-1"`, `"request_id":"req-9"`} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %s in %s", want, content)
		}
	}
}

func TestFormatSubject(t *testing.T) {
	if got := logging.FormatSubject("", ""); got != "" {
		t.Fatalf("expected empty subject, got %q", got)
	}
	if got := logging.FormatSubject("abc", ""); got != "Session abc" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "probe failed", "probe_failed",
		logging.String(logging.FieldImpact, "audio cannot be played"),
		logging.Seconds("position_seconds", 12.34567),
	)

	out := buf.String()
	for _, want := range []string{
		`"event_type":"probe_failed"`,
		`"error_hint":"run 'podgen doctor'"`,
		`"impact":"audio cannot be played"`,
		`"position_seconds":12.346`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestSecondsMapsNonFinite(t *testing.T) {
	if got := logging.Seconds("d", math.NaN()).Value.Float64(); got != -1 {
		t.Fatalf("expected -1 for NaN, got %v", got)
	}
}
