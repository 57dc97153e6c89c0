package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podgen/internal/podcast"
)

const catalogTimeout = 10 * time.Second

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	return newCatalogCommand(ctx, "voices", "List narrator voices", podcast.VoiceCatalog,
		func(c context.Context) ([]podcast.Entry, error) {
			client, err := ctx.generatorClient()
			if err != nil {
				return nil, err
			}
			return client.Voices(c)
		})
}

func newTonesCommand(ctx *commandContext) *cobra.Command {
	return newCatalogCommand(ctx, "tones", "List narration tones", podcast.ToneCatalog,
		func(c context.Context) ([]podcast.Entry, error) {
			client, err := ctx.generatorClient()
			if err != nil {
				return nil, err
			}
			return client.Tones(c)
		})
}

func newCatalogCommand(ctx *commandContext, use, short string, local func() []podcast.Entry, remote func(context.Context) ([]podcast.Entry, error)) *cobra.Command {
	var (
		fromService bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := local()
			if fromService {
				c, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
				defer cancel()
				var err error
				if entries, err = remote(c); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.Personality
				if detail == "" {
					detail = strings.Join(e.BestFor, ", ")
				}
				rows = append(rows, []string{e.ID, e.Name, e.Description, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Description", "Details"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromService, "remote", false, "Fetch the catalog from the generation service")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
