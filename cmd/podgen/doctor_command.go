package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podgen/internal/config"
	"podgen/internal/deps"
	"podgen/internal/services/generator"
)

const doctorServiceTimeout = 5 * time.Second

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, playback binaries and the generation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			lines := renderSectionHeader("Configuration", colorize)
			if _, statErr := os.Stat(ctx.configPath); statErr == nil {
				lines = append(lines, renderStatusLine("Config", statusOK, ctx.configPath, colorize))
			} else {
				lines = append(lines, renderStatusLine("Config", statusInfo, "Defaults (no file at "+ctx.configPath+")", colorize))
			}
			lines = append(lines, renderStatusLine("Data dir", statusOK, cfg.Paths.DataDir, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Playback", colorize)...)
			statuses := deps.CheckBinaries(deps.PlaybackRequirements(cfg.Playback.PlayerCommand, cfg.Playback.FFprobeBinary))
			depLines, missing := dependencyLines(statuses, colorize)
			lines = append(lines, depLines...)
			problems += missing

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Service", colorize)...)
			line, ok := serviceStatusLine(cmd.Context(), ctx, cfg, colorize)
			lines = append(lines, line)
			if !ok {
				problems++
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Extras", colorize)...)
			lines = append(lines, historyStatusLine(cmd.Context(), ctx, cfg, colorize))
			lines = append(lines, notificationStatusLine(cfg, colorize))

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}

// dependencyLines renders one line per binary and returns the number of
// required binaries that are missing.
func dependencyLines(statuses []deps.Status, colorize bool) ([]string, int) {
	lines := make([]string, 0, len(statuses)+1)
	for _, dep := range statuses {
		switch {
		case dep.Available:
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, detailOrDefault(dep.Detail), colorize))
		default:
			lines = append(lines, renderStatusLine(dep.Name, statusError, detailOrDefault(dep.Detail), colorize))
		}
	}
	missing := deps.Missing(statuses)
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, dep := range missing {
			names = append(names, dep.Name)
		}
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(names, ", "), colorize))
	}
	return lines, len(missing)
}

func detailOrDefault(detail string) string {
	if detail = strings.TrimSpace(detail); detail == "" {
		return "not available"
	}
	return detail
}

func serviceStatusLine(parent context.Context, ctx *commandContext, cfg *config.Config, colorize bool) (string, bool) {
	client, err := ctx.generatorClient()
	if err != nil {
		return renderStatusLine("Generator", statusError, err.Error(), colorize), false
	}
	c, cancel := context.WithTimeout(parent, doctorServiceTimeout)
	defer cancel()
	if err := client.Ping(c); err != nil {
		detail := fmt.Sprintf("%s unreachable", cfg.Service.BaseURL)
		if code := generator.StatusCode(err); code != 0 {
			detail = fmt.Sprintf("HTTP %d from %s", code, cfg.Service.BaseURL)
		}
		return renderStatusLine("Generator", statusError, detail, colorize), false
	}
	return renderStatusLine("Generator", statusOK, cfg.Service.BaseURL, colorize), true
}

func historyStatusLine(parent context.Context, ctx *commandContext, cfg *config.Config, colorize bool) string {
	if !cfg.History.Enabled {
		return renderStatusLine("History", statusInfo, "Disabled", colorize)
	}
	store, err := ctx.historyValue()
	if err != nil {
		return renderStatusLine("History", statusWarn, err.Error(), colorize)
	}
	count, err := store.Count(parent)
	if err != nil {
		return renderStatusLine("History", statusWarn, err.Error(), colorize)
	}
	return renderStatusLine("History", statusOK, fmt.Sprintf("%d entries in %s", count, store.Path()), colorize)
}

func notificationStatusLine(cfg *config.Config, colorize bool) string {
	if cfg.Notifications.NtfyTopic == "" {
		return renderStatusLine("Notifications", statusInfo, "Disabled (no ntfy topic)", colorize)
	}
	return renderStatusLine("Notifications", statusOK, cfg.Notifications.NtfyTopic, colorize)
}
