package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps an Index in step with its root. Filesystem events only
// request a reconcile; requests that arrive while a pass is running
// collapse into a single follow-up pass.
type Watcher struct {
	index    *Index
	debounce time.Duration
	onChange func(Diff)
	logger   *slog.Logger

	kick chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce waits d after the first event before reconciling so a burst
// of events becomes one pass.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher that reports non-empty diffs to onChange.
// onChange runs on the reconcile goroutine; a slow callback delays the
// next pass rather than queueing more.
func NewWatcher(index *Index, onChange func(Diff), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		index:    index,
		onChange: onChange,
		logger:   slog.Default(),
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("root", index.Root())
	return w
}

// Trigger requests a reconcile. It never blocks: if one is already
// pending the request is absorbed.
func (w *Watcher) Trigger() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run watches the root until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, w.index.Root()); err != nil {
		return fmt.Errorf("failed to watch library root %s: %w", w.index.Root(), err)
	}
	// Catch up on anything created between the index scan and registration.
	w.Trigger()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.reconcileLoop(ctx)
	}()

	w.logger.Info("watching library")
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				<-done
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						w.logger.Warn("failed to watch new folder", "path", ev.Name, "error", err)
					}
				}
			}
			w.Trigger()
		case err, ok := <-fw.Errors:
			if !ok {
				<-done
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) reconcileLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		}

		if w.debounce > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.debounce):
			}
			// Everything that arrived during the debounce window is covered
			// by this pass.
			select {
			case <-w.kick:
			default:
			}
		}

		diff, err := w.index.Refresh()
		if err != nil {
			w.logger.Warn("reconcile failed", "error", err)
			continue
		}
		if !diff.Empty() && w.onChange != nil {
			w.onChange(diff)
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
