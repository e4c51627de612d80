package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/MobRulesGames/mapasset/logging"
	"github.com/MobRulesGames/mapasset/texture"
	"github.com/howeyc/fsnotify"
)

// Editors tend to write a file in several steps; wait this long after the
// last change before re-reading it.
const settleDelay = 100 * time.Millisecond

// Watches the config at path and hands a freshly opened Set to onReload
// every time the file changes into a valid config. Invalid configs are
// logged and skipped so whatever onReload last received stays in use. Sets
// are never modified after being handed over. Blocks until ctx is done.
func Watch(ctx context.Context, path string, fetcher texture.Fetcher, onReload func(*Set), opts ...texture.Option) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("couldn't create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file; editors that save by
	// renaming a temp file over the original would otherwise drop the watch.
	dir := filepath.Dir(path)
	if err := watcher.Watch(dir); err != nil {
		return fmt.Errorf("couldn't watch %q: %w", dir, err)
	}
	target := filepath.Clean(path)
	logging.Info("watching asset config", "path", path)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Event:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(ev.Name) != target || ev.IsDelete() {
				continue
			}
			logging.Trace("asset config changed", "path", ev.Name, "create", ev.IsCreate(), "modify", ev.IsModify(), "rename", ev.IsRename())
			settle = time.After(settleDelay)

		case err, ok := <-watcher.Error:
			if !ok {
				return errors.New("watcher closed")
			}
			logging.Warn("watch error", "path", path, "err", err)

		case <-settle:
			settle = nil
			set, err := Open(path, fetcher, opts...)
			if err != nil {
				logging.Error("ignoring invalid asset config", "path", path, "err", err)
				continue
			}
			logging.Info("reloaded asset config", "path", path)
			onReload(set)
		}
	}
}
