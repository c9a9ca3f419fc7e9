package content

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads path into lib whenever the file changes, until ctx ends.
// The parent directory is watched because editors usually replace files
// rather than write them in place. A file that fails to parse leaves the
// previous content in place.
func Watch(ctx context.Context, path string, lib *Library, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create content watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve content path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching content", "path", abs)

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			site, err := Load(abs)
			if err != nil {
				logger.Warn("content reload failed, keeping previous", "path", abs, "error", err)
				continue
			}
			lib.Replace(site)
			logger.Info("content reloaded", "path", abs, "projects", len(site.Projects))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("content watcher error", "error", err)
		}
	}
}
