package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"glovehome/internal/hometree"
)

// watchLayout reloads the layout file whenever it changes and sends the new
// tree to the daemon. The parent directory is watched so editors that
// replace the file by rename are still seen. A layout that fails to parse is
// logged and skipped; the running tree stays.
func watchLayout(ctx context.Context, path string, out chan<- Event, logger *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("layout path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create layout watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching layout", "file", abs)

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			// Editors write in bursts; reload once things settle.
			if debounce == nil {
				debounce = time.NewTimer(layoutReloadDebounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(layoutReloadDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			tree, err := hometree.LoadLayout(abs)
			if err != nil {
				logger.Warn("layout reload failed; keeping current tree", "file", abs, "error", err)
				continue
			}
			logger.Info("layout reloaded", "file", abs, "entries", tree.Len())
			select {
			case out <- LayoutReloaded{Tree: tree, Path: abs}:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("layout watcher error", "error", err)
		}
	}
}
