package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"podgen/internal/podcast"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateService() error {
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("service.base_url must be an http(s) URL, got %q", c.Service.BaseURL)
	}
	if c.Service.RequestTimeoutSeconds <= 0 {
		return errors.New("service.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.MaxDurationMinutes < podcast.MinDurationMinutes || c.Generation.MaxDurationMinutes > maxDurationMinutesUpperBound {
		return fmt.Errorf("generation.max_duration_minutes must be between %d and %d", podcast.MinDurationMinutes, maxDurationMinutesUpperBound)
	}
	if c.Generation.DefaultDurationMinutes < podcast.MinDurationMinutes || c.Generation.DefaultDurationMinutes > c.Generation.MaxDurationMinutes {
		return errors.New("generation.default_duration_minutes must be between 1 and generation.max_duration_minutes")
	}
	if _, err := podcast.ParseVoice(c.Generation.DefaultVoice); err != nil {
		return fmt.Errorf("generation.default_voice: %w", err)
	}
	if _, err := podcast.ParseTone(c.Generation.DefaultTone); err != nil {
		return fmt.Errorf("generation.default_tone: %w", err)
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Playback.ProbeTimeoutSeconds <= 0 {
		return errors.New("playback.probe_timeout_seconds must be positive")
	}
	if c.Playback.TimeUpdateIntervalMS < minTimeUpdateIntervalMS {
		return fmt.Errorf("playback.time_update_interval_ms must be at least %d", minTimeUpdateIntervalMS)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if !c.History.Enabled {
		return nil
	}
	if c.History.MaxEntries <= 0 {
		return errors.New("history.max_entries must be positive")
	}
	if c.History.RetentionHours <= 0 {
		return errors.New("history.retention_hours must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be non-negative")
	}
	if strings.ContainsAny(c.Notifications.NtfyTopic, " \t") {
		return errors.New("notifications.ntfy_topic must be a URL without whitespace")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return nil
}
