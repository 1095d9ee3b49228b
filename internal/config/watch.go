package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"codeberg.org/ragcookbook/server/internal/logger"
)

// reloads the agent config whenever the file changes and hands valid
// configs to onChange; invalid edits are logged and ignored.
// blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*AgentConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	// watch the directory: editors replace files via rename
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	logger.Info("watching agent config", "path", target)

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

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			cfg, err := LoadAgentConfig(target)
			if err != nil {
				logger.ErrorErr(err, "agent config reload rejected, keeping previous config", "path", target)
				continue
			}

			logger.Info("agent config reloaded", "path", target, "tools", len(cfg.Tools))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.ErrorErr(err, "config watcher error", "path", target)
		}
	}
}
