package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizeGeneration()
	c.normalizePlayback()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.TokenFile, err = expandPath(strings.TrimSpace(c.Paths.TokenFile)); err != nil {
		return fmt.Errorf("paths.token_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv(baseURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Service.BaseURL = value
	}
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(c.Service.APIToken) == "" {
		if value, ok := os.LookupEnv(apiTokenEnv); ok {
			c.Service.APIToken = value
		}
	}
	c.Service.APIToken = strings.TrimSpace(c.Service.APIToken)
	c.Service.UserAgent = strings.TrimSpace(c.Service.UserAgent)
	if c.Service.UserAgent == "" {
		c.Service.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.DefaultVoice = strings.ToLower(strings.TrimSpace(c.Generation.DefaultVoice))
	if c.Generation.DefaultVoice == "" {
		c.Generation.DefaultVoice = defaultVoice
	}
	c.Generation.DefaultTone = strings.ToLower(strings.TrimSpace(c.Generation.DefaultTone))
	if c.Generation.DefaultTone == "" {
		c.Generation.DefaultTone = defaultTone
	}
}

func (c *Config) normalizePlayback() {
	c.Playback.PlayerCommand = strings.TrimSpace(c.Playback.PlayerCommand)
	if c.Playback.PlayerCommand == "" {
		c.Playback.PlayerCommand = defaultPlayerCommand
	}
	c.Playback.FFprobeBinary = strings.TrimSpace(c.Playback.FFprobeBinary)
	if c.Playback.FFprobeBinary == "" {
		c.Playback.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeNotifications() {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		if value, ok := os.LookupEnv(ntfyTopicEnv); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
