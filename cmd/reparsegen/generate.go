package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/reparse-dev/reparse/internal/cache"
)

func newGenerateCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "generate [globs...]",
		Short: "Rewrite reparse.Scan(...) call sites in the given files (or .reparse.yaml globs)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(manifestPath)
			if err != nil {
				return fmt.Errorf("loading manifest: %w", err)
			}
			globs := args
			if len(globs) == 0 {
				globs = m.Globs
			}

			files, err := discoverFiles(globs)
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}

			c, err := cache.Open(m.CacheDir)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}

			rewritten := 0
			for _, f := range files {
				changed, err := RewriteFile(f, c)
				if err != nil {
					return err
				}
				if changed {
					slog.Info("reparsegen: regenerated", "file", f)
					rewritten++
				}
			}
			slog.Info("reparsegen: done", "files_scanned", len(files), "files_rewritten", rewritten)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", defaultManifestPath, "path to .reparse.yaml")
	return cmd
}
