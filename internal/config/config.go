package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	DownloadDir string `toml:"download_dir"`
	TokenFile   string `toml:"token_file"`
}

// Service contains connection settings for the podcast generation service.
type Service struct {
	BaseURL               string `toml:"base_url"`
	APIToken              string `toml:"api_token"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	UserAgent             string `toml:"user_agent"`
}

// Generation contains form defaults and parameter bounds.
type Generation struct {
	DefaultVoice           string `toml:"default_voice"`
	DefaultTone            string `toml:"default_tone"`
	DefaultDurationMinutes int    `toml:"default_duration_minutes"`
	MaxDurationMinutes     int    `toml:"max_duration_minutes"`
}

// Playback contains settings for the local media player.
type Playback struct {
	// PlayerCommand is split with shell quoting rules; the seek offset and the
	// source URL are appended by the player.
	PlayerCommand        string `toml:"player_command"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	ProbeTimeoutSeconds  int    `toml:"probe_timeout_seconds"`
	TimeUpdateIntervalMS int    `toml:"time_update_interval_ms"`
	Autoplay             bool   `toml:"autoplay"`
}

// History contains settings for the local generation history store.
type History struct {
	Enabled        bool `toml:"enabled"`
	MaxEntries     int  `toml:"max_entries"`
	RetentionHours int  `toml:"retention_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ready          bool   `toml:"ready"`
	Failures       bool   `toml:"failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for podgen.
//
// Configuration sections by subsystem:
//   - Paths: data, log and download directories
//   - Service: generation service endpoint, credentials and request ceiling
//   - Generation: form defaults and the duration cap
//   - Playback: player command and probe settings
//   - History: local generation history retention
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Service       Service       `toml:"service"`
	Generation    Generation    `toml:"generation"`
	Playback      Playback      `toml:"playback"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podgen.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. The download
// directory is created lazily by the download command.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the ceiling applied to a single generation request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Service.RequestTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the ceiling applied to a single ffprobe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Playback.ProbeTimeoutSeconds) * time.Second
}

// TimeUpdateInterval returns how often the player reports its position.
func (c *Config) TimeUpdateInterval() time.Duration {
	return time.Duration(c.Playback.TimeUpdateIntervalMS) * time.Millisecond
}

// HistoryRetention returns how long history entries are kept.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionHours) * time.Hour
}

// HistoryPath returns the location of the history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// SessionLockPath returns the lock file guarding the interactive studio.
func (c *Config) SessionLockPath() string {
	return filepath.Join(c.Paths.DataDir, "studio.lock")
}

// APIToken returns the bearer token for the generation service. An inline
// token wins over the token file.
func (c *Config) APIToken() (string, error) {
	if token := strings.TrimSpace(c.Service.APIToken); token != "" {
		return token, nil
	}
	if c.Paths.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.Paths.TokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
