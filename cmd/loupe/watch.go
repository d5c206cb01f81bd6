package main

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the graph as files change",
	Long:  "Watches the repository tree and triggers an incremental rebuild after each burst of filesystem events. Runs until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 500*time.Millisecond, "quiet period before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	ignored := make(map[string]bool, len(e.Config().IgnoreDirs))
	for _, d := range e.Config().IgnoreDirs {
		ignored[d] = true
	}
	if err := addWatchDirs(watcher, e.Root(), ignored); err != nil {
		return err
	}

	if _, err := e.Build(ctx, true); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Watching %s\n", e.Root())

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(flagDebounce, func() {
			select {
			case rebuild <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %s\n", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if skipWatchPath(ev.Name, ignored) {
				continue
			}
			// New directories need their own watch before events
			// inside them can arrive.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					addWatchDirs(watcher, ev.Name, ignored)
				}
			}
			schedule()
		case <-rebuild:
			start := time.Now()
			g, err := e.Build(ctx, true)
			if err != nil {
				fmt.Fprintf(os.Stderr, "rebuild failed: %s\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "Rebuilt: %d files, %d symbols in %s\n",
				len(g.FileHash), len(g.CrossRefs), time.Since(start).Round(time.Millisecond))
		}
	}
}

// addWatchDirs registers root and every non-ignored subdirectory.
func addWatchDirs(watcher *fsnotify.Watcher, root string, ignored map[string]bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (ignored[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			fmt.Fprintf(os.Stderr, "cannot watch %s: %s\n", path, err)
		}
		return nil
	})
}

// skipWatchPath drops events under ignored or hidden directories.
func skipWatchPath(path string, ignored map[string]bool) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if ignored[part] || (len(part) > 1 && strings.HasPrefix(part, ".")) {
			return true
		}
	}
	return false
}
