package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podgen/internal/history"
	"podgen/internal/textutil"
)

var errHistoryDisabled = errors.New("history is disabled in the configuration")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recent generations",
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryPrefsCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	store, err := ctx.historyValue()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errHistoryDisabled
	}
	return store, nil
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		topic  string
		voice  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent generations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}

			var entries []history.Entry
			switch {
			case strings.TrimSpace(topic) != "":
				entries, err = store.Search(cmd.Context(), topic)
			case strings.TrimSpace(voice) != "":
				entries, err = store.ByVoice(cmd.Context(), voice)
			default:
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			if asJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No generations recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := e.ArtifactRef
				if !e.Success {
					result = "failed: " + e.ErrorMessage
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					textutil.Truncate(e.Topic, 40),
					e.Voice,
					e.Tone,
					strconv.Itoa(e.DurationMinutes),
					result,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Topic", "Voice", "Tone", "Min", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum entries to show (0 for all)")
	cmd.Flags().StringVar(&topic, "topic", "", "Only entries whose topic contains this text")
	cmd.Flags().StringVar(&voice, "voice", "", "Only entries narrated by this voice")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPrefsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Summarize preferred voice, tone and success rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			prefs, err := store.Preferences(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, prefs)
			}
			out := cmd.OutOrStdout()
			if prefs.TotalGenerations == 0 {
				fmt.Fprintln(out, "No generations recorded")
				return nil
			}
			fmt.Fprintf(out, "Generations:     %d\n", prefs.TotalGenerations)
			fmt.Fprintf(out, "Success rate:    %.2f%%\n", prefs.SuccessRate)
			fmt.Fprintf(out, "Preferred voice: %s\n", dashIfEmpty(prefs.PreferredVoice))
			fmt.Fprintf(out, "Preferred tone:  %s\n", dashIfEmpty(prefs.PreferredTone))
			fmt.Fprintf(out, "Voices:          %s\n", formatDistribution(prefs.VoiceDistribution))
			fmt.Fprintf(out, "Tones:           %s\n", formatDistribution(prefs.ToneDistribution))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", textutil.Plural(removed, "entry", "entries"))
			return nil
		},
	}
}

func formatDistribution(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
