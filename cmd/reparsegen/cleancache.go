package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reparse-dev/reparse/internal/cache"
)

func newCleanCacheCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "clean-cache",
		Short: "Remove every entry from the compile cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(manifestPath)
			if err != nil {
				return fmt.Errorf("loading manifest: %w", err)
			}
			c, err := cache.Open(m.CacheDir)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			return c.Clean()
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", defaultManifestPath, "path to .reparse.yaml")
	return cmd
}
