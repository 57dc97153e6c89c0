package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"podgen/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.TokenFile = ""
	cfgVal.Service.BaseURL = "http://127.0.0.1:0"
	cfgVal.Service.RequestTimeoutSeconds = 5
	cfgVal.Playback.TimeUpdateIntervalMS = 50

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServiceURL points the config at a test generation service.
func WithServiceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.BaseURL = url
	}
}

// WithHistoryLimits overrides history retention settings.
func WithHistoryLimits(maxEntries, retentionHours int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.MaxEntries = maxEntries
		b.cfg.History.RetentionHours = retentionHours
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffplay and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffplay", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
