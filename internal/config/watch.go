package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"outreach/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce absorbs the burst of events editors emit for a single save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and hands the
// result to fn. The parent directory is watched so that atomic-rename saves
// are seen. Watch blocks until ctx is done. Reload failures are logged and
// the previous config stays in effect.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logging.ConfigInfo("watching %s", abs)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.ConfigWarn("watcher error: %v", err)

		case <-debounce:
			debounce = nil
			cfg, err := Load(abs)
			if err != nil {
				logging.ConfigWarn("reload %s failed: %v", abs, err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logging.ConfigWarn("reloaded config rejected: %v", err)
				continue
			}
			logging.ConfigInfo("config reloaded from %s", abs)
			fn(cfg)
		}
	}
}
