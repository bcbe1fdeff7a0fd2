package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reparse-dev/reparse/internal/cache"
	"github.com/reparse-dev/reparse/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Recompile reparse.Scan(...) call sites whenever a watched .go file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(manifestPath)
			if err != nil {
				return fmt.Errorf("loading manifest: %w", err)
			}
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}

			c, err := cache.Open(m.CacheDir)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}

			debounce := 150 * time.Millisecond
			if m.Debounce != "" {
				if d, err := time.ParseDuration(m.Debounce); err == nil {
					debounce = d
				}
			}

			ctx, cancel := newCancellableContext()
			defer cancel()

			return watch.Loop(ctx, watch.Options{
				Dirs:     dirs,
				Debounce: debounce,
				Logger:   slog.Default(),
			}, func(path string) (bool, error) {
				return RewriteFile(path, c)
			})
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", defaultManifestPath, "path to .reparse.yaml")
	return cmd
}

// newCancellableContext cancels on SIGINT/SIGTERM, the same shutdown shape
// the teacher's CLI uses around its own long-running execution.
func newCancellableContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	return ctx, cancel
}
