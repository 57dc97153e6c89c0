package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"podgen/internal/playback"
	"podgen/internal/player"
)

const readyTimeout = 2 * time.Minute

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var start float64

	cmd := &cobra.Command{
		Use:   "play <artifact|url|file>",
		Short: "Play a generated podcast by artifact reference, URL or local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerValue()

			source, err := resolvePlaySource(ctx, args[0])
			if err != nil {
				return err
			}

			p, err := player.New(player.Config{
				Command:       cfg.Playback.PlayerCommand,
				FFprobeBinary: cfg.Playback.FFprobeBinary,
				ProbeTimeout:  cfg.ProbeTimeout(),
				TickInterval:  cfg.TimeUpdateInterval(),
			}, logger)
			if err != nil {
				return err
			}
			controller := playback.NewController(p, logger)
			defer controller.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := controller.Load(source); err != nil {
				return err
			}
			if err := waitForReady(runCtx, controller); err != nil {
				return err
			}
			if start > 0 {
				if err := controller.Seek(start); err != nil {
					return err
				}
			}
			if err := controller.Play(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Playing %s\n", source)
			_, err = followPlayback(runCtx, controller.Snapshot, out, shouldColorize(out))
			return err
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "Start position in seconds")
	return cmd
}

// resolvePlaySource passes URLs and existing files through and resolves
// anything else as an artifact reference.
func resolvePlaySource(ctx *commandContext, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}
	client, err := ctx.generatorClient()
	if err != nil {
		return "", err
	}
	return client.DownloadURL(arg)
}

func waitForReady(ctx context.Context, controller *playback.Controller) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		snap := controller.Snapshot()
		switch {
		case snap.State == playback.StateReady:
			return nil
		case snap.State == playback.StateEmpty:
			if snap.Err != nil {
				return snap.Err
			}
			return fmt.Errorf("playback was released before the audio loaded")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
