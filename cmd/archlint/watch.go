package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jward/archlint"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-validate on every Python file change",
	Long:  "Watches the repository and re-runs validation whenever a Python file changes. The per-file cache keeps each re-run proportional to the change.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

const watchDebounce = 300 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := resolveRepoRoot(args)
	if err != nil {
		return err
	}
	engine, err := newEngine(root)
	if err != nil {
		return err
	}
	defer engine.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer watcher.Close()
	if err := addWatchRecursive(watcher, root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	runOpts := archlint.RunOptions{MinSeverity: flagSeverity}
	validate := func() {
		report, err := engine.Run(context.Background(), runOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return
		}
		if err := writeReport(os.Stdout, report, flagFormat); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}

	// Initial full run, then debounced re-runs on change.
	validate()

	var timer *time.Timer
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, ev.Name)
				}
			}
			if !strings.HasSuffix(ev.Name, ".py") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, validate)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %s\n", err)
		}
	}
}

func addWatchRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipWatchDirs[name]) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

var skipWatchDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}
