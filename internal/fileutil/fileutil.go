package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteResult describes a completed atomic write.
type WriteResult struct {
	Path   string
	Bytes  int64
	SHA256 string
}

// WriteAtomic streams content produced by fill into a temporary file next to
// dst and renames it into place once fill succeeds. dst is never left
// partially written.
func WriteAtomic(dst string, mode os.FileMode, fill func(io.Writer) error) (WriteResult, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteResult{}, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return WriteResult{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	counter := &countingWriter{}
	if err := fill(io.MultiWriter(tmp, hasher, counter)); err != nil {
		return WriteResult{}, err
	}
	if err := tmp.Sync(); err != nil {
		return WriteResult{}, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return WriteResult{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return WriteResult{}, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return WriteResult{}, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return WriteResult{
		Path:   dst,
		Bytes:  counter.n,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// UniquePath returns dir/name, or dir/"stem (n)ext" for the first n that
// does not exist yet.
func UniquePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n < 1000; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
