package topics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

// Watch reloads the table at path whenever it changes and hands the new rules
// to apply. The parent directory is watched so editors that replace the file
// by rename are picked up. A table that fails to parse is logged and ignored.
func Watch(ctx context.Context, path string, apply func([]domain.TopicRule)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve topic table path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create topic table watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch topic table dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				rules, err := Load(target)
				if err != nil {
					slog.Warn("topic_table_reload_failed", "path", target, "error", err.Error())
					continue
				}
				apply(rules)
				slog.Info("topic_table_reloaded", "path", target, "topics", len(rules))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("topic_table_watch_error", "path", target, "error", err.Error())
			}
		}
	}()
	return nil
}
