package vfs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
)

// Watch reloads the tree file at path whenever it changes and passes every
// tree that parses to apply. A file that fails to parse, or a tree that
// apply rejects, is logged and the previous tree stays in place.
//
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, apply func(*Tree) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// The directory is watched so that replace-by-rename is seen too.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("Watching filesystem tree", logger.KeyPath, target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			reload(target, apply)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Filesystem tree watcher error", logger.KeyError, err)
		}
	}
}

func reload(path string, apply func(*Tree) error) {
	tree, err := LoadTree(path)
	if err != nil {
		logger.Warn("Ignoring filesystem tree change", logger.KeyPath, path, logger.KeyError, err)
		return
	}
	if err := apply(tree); err != nil {
		logger.Warn("Filesystem tree rejected", logger.KeyPath, path, logger.KeyError, err)
		return
	}

	dirs, files := tree.Stats()
	logger.Info("Filesystem tree reloaded", logger.KeyPath, path, "dirs", dirs, "files", files)
}
