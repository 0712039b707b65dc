package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// DefaultDebounce collapses the remove-then-write burst of one follow-up.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to the follow-up image directory.
type Watcher struct {
	store    *Store
	debounce time.Duration
	onChange func(ctx context.Context, images []domain.HighResImage)
}

// NewWatcher creates a watcher calling onChange with the current image list
// after each burst of changes.
func NewWatcher(store *Store, debounce time.Duration, onChange func(ctx context.Context, images []domain.HighResImage)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{store: store, debounce: debounce, onChange: onChange}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.store.HighResDir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.HighResDir(), err)
	}
	slog.Info("watching high-res images", "dir", w.store.HighResDir())

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			slog.Debug("high-res image changed", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		case <-timer.C:
			images, err := w.store.ListHighRes(ctx)
			if err != nil {
				slog.Warn("list high-res images", "error", err)
				continue
			}
			w.onChange(ctx, images)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return false
	}
	_, ok := ParseHighResName(filepath.Base(ev.Name))
	return ok
}
