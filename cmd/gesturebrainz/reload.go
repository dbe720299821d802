package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the event bursts editors emit when saving.
const reloadDebounce = 250 * time.Millisecond

// runConfigWatcher watches the config file and feeds reparsed gesture
// tuning and bindings to the brain.
//
// The parent directory is watched rather than the file itself: most
// editors save by writing a temp file and renaming it over the original,
// which would silently detach a file-level watch.
//
// A config that fails to parse or validate is logged and ignored; the
// daemon keeps running on the previous one.
func runConfigWatcher(ctx context.Context, path string, msgs chan<- brainMsg, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	abs := ExpandPath(path)
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	logger.Info("config watcher started", "path", abs)

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			logger.Debug("config watcher stopping (context canceled)")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}

			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
				debounceCh = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(reloadDebounce)
			}

		case <-debounceCh:
			debounce = nil
			debounceCh = nil

			cfg, err := LoadConfigFile(abs)
			if err != nil {
				logger.Warn("config reload failed, keeping previous config", "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logger.Warn("reloaded config invalid, keeping previous config", "error", err)
				continue
			}

			logger.Info("config reloaded", "path", abs)
			select {
			case msgs <- configMsg{Engine: cfg.ToEngineConfig(), Bindings: cfg.ToBindings(), Surface: cfg.Surface}:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
