package session_test

import (
	"errors"
	"path/filepath"
	"testing"

	"podgen/internal/session"
)

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "studio.lock")

	first, err := session.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := session.AcquireLock(path); !errors.Is(err, session.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := session.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	defer second.Release()
	if second.Path() != path {
		t.Fatalf("unexpected path %s", second.Path())
	}
}
