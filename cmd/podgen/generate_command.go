package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"podgen/internal/playback"
	"podgen/internal/podcast"
	"podgen/internal/request"
	"podgen/internal/services"
	"podgen/internal/session"
)

const pollInterval = 100 * time.Millisecond

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		voice    string
		tone     string
		duration int
		play     bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "generate <topic...>",
		Short: "Generate a podcast and optionally play it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			params, err := parametersFromFlags(ctx, strings.Join(args, " "), voice, tone, duration)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			coord, err := ctx.newSession(sessionOptions{autoplay: play, headless: !play})
			if err != nil {
				return err
			}
			defer coord.Close()

			out := cmd.OutOrStdout()
			if _, err := coord.Submit(params); err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintf(out, "Generating %d minute podcast about %q (%s, %s)...\n",
					params.DurationMinutes, podcast.NormalizeTopic(params.Topic), params.Voice.Label(), params.Tone.Label())
			}
			if err := coord.Wait(runCtx); err != nil {
				return err
			}

			view := coord.View()
			if view.RequestStatus != request.StatusSucceeded || view.DownloadURL == "" || view.LoadError != "" {
				if asJSON {
					if err := writeJSON(cmd, view); err != nil {
						return err
					}
				}
				return errors.New(failureText(view))
			}
			if !play {
				if asJSON {
					return writeJSON(cmd, view)
				}
				fmt.Fprintf(out, "Podcast ready: %s\n", view.DownloadURL)
				return nil
			}

			if !asJSON {
				fmt.Fprintf(out, "Playing %s\n", view.DownloadURL)
			}
			_, err = followPlayback(runCtx, func() playback.Snapshot { return coord.View().Playback }, out, !asJSON && shouldColorize(out))
			if asJSON {
				if jsonErr := writeJSON(cmd, coord.View()); jsonErr != nil {
					return jsonErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Narrator voice (default from config)")
	cmd.Flags().StringVar(&tone, "tone", "", "Narration tone (default from config)")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Target length in minutes (default from config)")
	cmd.Flags().BoolVarP(&play, "play", "p", false, "Play the podcast once it is ready")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the final session view as JSON")
	return cmd
}

// parametersFromFlags merges flag values over the configured form defaults.
func parametersFromFlags(ctx *commandContext, topic, voice, tone string, duration int) (podcast.Parameters, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return podcast.Parameters{}, err
	}
	params := formDefaults(cfg.Generation.DefaultVoice, cfg.Generation.DefaultTone, cfg.Generation.DefaultDurationMinutes)
	params.Topic = topic
	if strings.TrimSpace(voice) != "" {
		if params.Voice, err = podcast.ParseVoice(voice); err != nil {
			return podcast.Parameters{}, err
		}
	}
	if strings.TrimSpace(tone) != "" {
		if params.Tone, err = podcast.ParseTone(tone); err != nil {
			return podcast.Parameters{}, err
		}
	}
	if duration != 0 {
		params.DurationMinutes = duration
	}
	return params, nil
}

// followPlayback renders playback until it ends, fails to load or ctx ends.
func followPlayback(ctx context.Context, snapshot func() playback.Snapshot, out io.Writer, live bool) (playback.Snapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastState := playback.State("")
	for {
		snap := snapshot()
		if live {
			fmt.Fprintf(out, "\r%s", renderProgress(snap))
		} else if snap.State != lastState {
			fmt.Fprintf(out, "playback: %s\n", snap.State)
		}
		lastState = snap.State

		var done bool
		var err error
		switch {
		case snap.State == playback.StateEnded:
			done = true
		case snap.State == playback.StateEmpty && snap.Err != nil:
			done, err = true, errors.New(services.UserMessage(snap.Err))
		}
		if !done {
			select {
			case <-ctx.Done():
				done, err = true, ctx.Err()
			case <-ticker.C:
			}
		}
		if done {
			if live {
				fmt.Fprintln(out)
			}
			return snap, err
		}
	}
}

func failureText(view session.View) string {
	if msg := strings.TrimSpace(view.Message); msg != "" {
		return msg
	}
	return "generation failed"
}
