package generator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// TokenSource supplies the bearer token attached to service requests. An
// empty token means the request is sent without credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// FileToken reads the token from a file on every request so a refreshed
// token is picked up without restarting. A missing file yields no token.
type FileToken struct {
	Path string
}

func (f FileToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(f.Path) == "" {
		return "", nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
