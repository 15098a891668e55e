package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// Watch re-reads the config file whenever it changes and delivers the
// result to onReload. Editors replace files with rename+create, so the
// watch is on the parent directory. Invalid intermediate states are
// logged and skipped; the last good config stays in effect.
func Watch(ctx context.Context, path string, logger *zap.Logger, onReload func(Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config_watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var timer *time.Timer
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					cfg, err := Load(path)
					if err != nil {
						logger.Warn("config reload skipped",
							zap.String("path", path),
							zap.Error(err),
						)
						return
					}
					logger.Info("config reloaded", zap.String("path", path))
					onReload(cfg)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if err != nil && !strings.Contains(err.Error(), "closed") {
					logger.Warn("config watcher error", zap.Error(err))
				}
			}
		}
	}()

	return nil
}
