package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/iplantc/decat/internal/storage"
)

// ReloadCallback is called after a watcher-driven sync changed the catalog.
type ReloadCallback func()

const reloadDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the directory holding the seed file
// and re-syncs the catalog whenever the seed is written, created, or
// renamed into place, until ctx is cancelled. Bursts of events are
// debounced into a single sync. cb (if non-nil) runs after each sync that
// changed the catalog.
//
// The directory is watched rather than the file so editors that save by
// rename are still observed.
func Watch(ctx context.Context, db Catalog, store storage.Provider, seedPath string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Join(store.Root(), filepath.Clean(seedPath))
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("seed", target))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			changed, syncErr := Sync(db, store, seedPath, logger)
			if syncErr != nil {
				logger.Warn("watcher: sync failed", slog.String("path", seedPath), slog.String("error", syncErr.Error()))
				continue
			}
			if changed && cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				logger.Debug("watcher: seed event", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
