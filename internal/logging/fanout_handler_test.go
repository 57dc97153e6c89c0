package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerNilHandlers(t *testing.T) {
	h := TeeHandler(nil, nil)
	if _, ok := h.(nopHandler); !ok {
		t.Errorf("expected nopHandler for all nil handlers, got %T", h)
	}
}

func TestTeeHandlerSingleHandlerUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner); h != inner {
		t.Error("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(info, debug)).With("component", "test")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee to be enabled for debug")
	}
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") {
		t.Fatalf("info handler missing info record: %s", infoBuf.String())
	}
	if strings.Count(debugBuf.String(), "\"component\":\"test\"") != 2 {
		t.Fatalf("expected both records with attrs in debug handler: %s", debugBuf.String())
	}
}

func TestPrettyHandlerHeaderAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger.Info("request submitted",
		FieldComponent, "request",
		FieldSessionID, "0123456789abcdef",
		FieldRequestID, "fedcba9876543210",
		"topic", "deep sea",
		FieldEventType, "request_submitted",
	)
	out := buf.String()
	header := strings.SplitN(out, "\n", 2)[0]
	for _, want := range []string{"INFO [request]", "Session 01234567 · Request fedcba98", "– request submitted"} {
		if !strings.Contains(header, want) {
			t.Fatalf("expected %q in header %q", want, header)
		}
	}
	if !strings.Contains(out, "    - topic: deep sea\n") {
		t.Fatalf("expected topic field, got %q", out)
	}
	if strings.Contains(out, FieldEventType) {
		t.Fatalf("expected event_type hidden at info level, got %q", out)
	}
}

func TestPrettyHandlerWarnKeepsRoutingFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))
	WarnWithContext(logger, "late callback dropped", "playback_stale_callback")
	out := buf.String()
	for _, want := range []string{"WARN", "event_type: playback_stale_callback", "error_hint:", "impact:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
