// Package watch implements reparsegen's watch mode: a loop that recompiles
// annotated call sites whenever a source file changes, instead of running
// once and exiting. The teacher's CLI has no watch mode of its own, but its
// main.go cancels a long-running operation on SIGINT/SIGTERM by wiring a
// context to an os/signal channel; this package reuses that same shutdown
// shape around an fsnotify event loop instead of a single execution.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Rewriter rewrites a single Go source file in place, returning whether
// anything actually changed. cmd/reparsegen supplies its call-site rewrite
// pass here; this package knows nothing about reparse.Scan call sites.
type Rewriter func(path string) (changed bool, err error)

// Options configures a watch Loop.
type Options struct {
	// Dirs are the root directories to watch, recursively.
	Dirs []string
	// Debounce coalesces bursts of filesystem events (editors often emit
	// several writes per save) into a single rewrite pass.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Loop watches Options.Dirs for .go file changes and invokes rewrite for
// each one, until ctx is canceled. It returns the first unrecoverable
// error; per-file rewrite errors are logged and do not stop the loop, since
// one file's syntax error shouldn't block everything else being watched.
func Loop(ctx context.Context, opts Options, rewrite Rewriter) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range opts.Dirs {
		if err := addRecursive(watcher, dir); err != nil {
			return fmt.Errorf("watch: watching %s: %w", dir, err)
		}
	}

	pending := map[string]struct{}{}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	flush := func() {
		for path := range pending {
			changed, err := rewrite(path)
			if err != nil {
				logger.Error("reparsegen: rewrite failed", "file", path, "error", err)
				continue
			}
			if changed {
				logger.Info("reparsegen: regenerated", "file", path)
			}
		}
		pending = map[string]struct{}{}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".go" {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("reparsegen: watcher error", "error", err)

		case <-timer.C:
			flush()
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	dirs, err := subdirs(root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	return nil
}
