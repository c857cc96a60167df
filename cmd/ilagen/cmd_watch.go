package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func runWatchCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Path() == "" {
		return errors.New("watch needs a config file: pass --config or run 'ilagen init'")
	}
	path, err := filepath.Abs(cfg.Path())
	if err != nil {
		return err
	}
	delay, err := time.ParseDuration(watchDelay)
	if err != nil {
		return fmt.Errorf("invalid --debounce: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	regenerate(ctx, cmd, path, log)
	log.Info("watching config", "path", path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			regenerate(ctx, cmd, path, log)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// regenerate reloads the config and runs every width. Failures are logged so
// that the next save can fix them.
func regenerate(ctx context.Context, cmd *cobra.Command, path string, log *slog.Logger) {
	cfg, err := loadConfigFrom(cmd, path)
	if err != nil {
		log.Error("reloading config", "path", path, "error", err)
		return
	}
	paths, err := resolvePaths(cmd, cfg)
	if err != nil {
		log.Error("resolving paths", "error", err)
		return
	}
	r := &runner{cfg: cfg, paths: paths, log: log}
	results, err := r.run(ctx)
	if err != nil {
		log.Error("generation failed", "error", err)
		return
	}
	log.Info("regenerated", "widths", len(results))
}
