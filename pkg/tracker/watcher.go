package tracker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ocosta/remsync/pkg/ignore"
	"github.com/ocosta/remsync/pkg/logging"
)

// Watcher subscribes to filesystem events under a workspace root and feeds
// them into a Tracker. The event stream is infinite; a stopped watcher is
// restarted by creating a new one over the same root.
type Watcher struct {
	workspace string
	tracker   *Tracker
	logger    logging.Logger
	notify    *fsnotify.Watcher
}

// NewWatcher creates a watcher for the workspace root. The root and every
// subdirectory (except the VCS metadata directory) are subscribed; new
// directories are picked up as they appear.
func NewWatcher(workspace string, t *Tracker, logger logging.Logger) (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		workspace: workspace,
		tracker:   t,
		logger:    logger,
		notify:    notify,
	}

	if err := w.addRecursive(workspace); err != nil {
		notify.Close()
		return nil, err
	}

	return w, nil
}

// Run consumes watch events until the context is cancelled. Each event is
// an independent, non-blocking tracker update.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Warn(ctx, "watch error", logging.Fields{"error": err.Error()})
			}
		}
	}
}

// Close stops the subscription
func (w *Watcher) Close() error {
	return w.notify.Close()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		// new directories join the subscription; the tracker's stat
		// check keeps them out of the pending set
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Base(event.Name) != ignore.VCSMetadataDir {
				_ = w.notify.Add(event.Name)
			}
			return
		}
		w.tracker.OnFileEvent(w.workspace, event.Name, EventCreated)

	case event.Has(fsnotify.Write):
		w.tracker.OnFileEvent(w.workspace, event.Name, EventModified)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.tracker.OnFileEvent(w.workspace, event.Name, EventDeleted)
	}

	if w.logger != nil {
		w.logger.Debug(ctx, "watch event", logging.Fields{
			"path": event.Name,
			"op":   event.Op.String(),
		})
	}
}

// addRecursive subscribes the root and all nested directories
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ignore.VCSMetadataDir {
			return filepath.SkipDir
		}
		if err := w.notify.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
