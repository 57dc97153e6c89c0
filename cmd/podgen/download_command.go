package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"podgen/internal/config"
	"podgen/internal/fileutil"
	"podgen/internal/textutil"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "download [artifact]",
		Short: "Save a generated podcast locally (default: the latest successful generation)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			ref, topic := "", ""
			if len(args) == 1 {
				ref = strings.TrimSpace(args[0])
			} else {
				if ref, topic, err = latestArtifact(ctx, cmd); err != nil {
					return err
				}
			}

			dest, err := downloadDestination(cfg, output, textutil.DownloadName(ref, topic, "mp3"))
			if err != nil {
				return err
			}

			client, err := ctx.generatorClient()
			if err != nil {
				return err
			}
			result, err := fileutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
				_, err := client.Download(cmd.Context(), ref, w)
				return err
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{
					"artifact_ref": ref,
					"path":         result.Path,
					"bytes":        result.Bytes,
					"sha256":       result.SHA256,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", result.Path, result.Bytes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (default: the configured download directory)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func latestArtifact(ctx *commandContext, cmd *cobra.Command) (string, string, error) {
	store, err := openHistory(ctx)
	if err != nil {
		if errors.Is(err, errHistoryDisabled) {
			return "", "", errors.New("no artifact given and history is disabled")
		}
		return "", "", err
	}
	entries, err := store.Recent(cmd.Context(), 0)
	if err != nil {
		return "", "", err
	}
	for _, e := range entries {
		if e.Success && e.ArtifactRef != "" {
			return e.ArtifactRef, e.Topic, nil
		}
	}
	return "", "", errors.New("no successful generation in history; pass an artifact reference")
}

// downloadDestination resolves output to a file path. An existing directory,
// or an empty output, receives name without overwriting existing files.
func downloadDestination(cfg *config.Config, output, name string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return fileutil.UniquePath(cfg.Paths.DownloadDir, name)
	}
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return fileutil.UniquePath(expanded, name)
	}
	if strings.HasSuffix(output, string(filepath.Separator)) {
		return fileutil.UniquePath(expanded, name)
	}
	return expanded, nil
}
