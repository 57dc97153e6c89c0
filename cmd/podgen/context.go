package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"podgen/internal/config"
	"podgen/internal/history"
	"podgen/internal/logging"
	"podgen/internal/services/generator"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	historyStore *history.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// loggerValue returns the process logger, falling back to a console logger
// when the configured one cannot be built.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
			logger.Warn("falling back to console logging", logging.Error(err))
		}
		c.logger = logger
		if cfg != nil {
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, logging.LogFilePattern,
				logging.LogFileName(timeNow()))
		}
	})
	return c.logger
}

func (c *commandContext) generatorClient() (*generator.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	token, err := cfg.APIToken()
	if err != nil {
		return nil, err
	}
	var opts []generator.Option
	switch {
	case token != "":
		opts = append(opts, generator.WithTokenSource(generator.StaticToken(token)))
	case cfg.Paths.TokenFile != "":
		opts = append(opts, generator.WithTokenSource(generator.FileToken{Path: cfg.Paths.TokenFile}))
	}
	return generator.NewClient(generator.Config{
		BaseURL:   cfg.Service.BaseURL,
		UserAgent: cfg.Service.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, opts...), nil
}

// historyValue opens the history store once. It returns nil when history is
// disabled.
func (c *commandContext) historyValue() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	if c.historyStore == nil {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, err
		}
		c.historyStore = store
	}
	return c.historyStore, nil
}

func (c *commandContext) close() {
	if c.historyStore != nil {
		_ = c.historyStore.Close()
		c.historyStore = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
