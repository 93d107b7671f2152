package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const eventBuffer = 256

// Watcher reports changes in a single directory.
type Watcher struct {
	dir      string
	onChange func()
	logger   *slog.Logger
	ready    chan struct{}
}

// New creates a Watcher for dir that calls onChange after every batch of
// filesystem events.
func New(dir string, onChange func()) *Watcher {
	return &Watcher{
		dir:      dir,
		onChange: onChange,
		logger:   slog.Default(),
		ready:    make(chan struct{}),
	}
}

// WithLogger replaces the logger used for watcher diagnostics.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	w.logger = l
	return w
}

// Ready is closed once the directory watch is registered.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the directory until ctx is cancelled. It returns an error only
// if the watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	// Buffered so that events arriving during a slow callback queue up and
	// are drained as one batch.
	fw, err := fsnotify.NewBufferedWatcher(eventBuffer)
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: add %q: %w", w.dir, err)
	}
	close(w.ready)

	w.logger.Info("watch: watching parameter directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			n := w.count(event)
			n += w.drain(fw)
			if n == 0 {
				continue
			}
			w.logger.Debug("watch: change detected", "events", n)
			w.onChange()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch: watcher error", "err", err)
		}
	}
}

// drain consumes every event already queued without blocking and returns
// how many of them were relevant.
func (w *Watcher) drain(fw *fsnotify.Watcher) int {
	n := 0
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return n
			}
			n += w.count(event)
		default:
			return n
		}
	}
}

// count returns 1 for events that can change the parameter list.
func (w *Watcher) count(event fsnotify.Event) int {
	if !isRelevant(event) {
		return 0
	}
	if filepath.Clean(event.Name) == filepath.Clean(w.dir) &&
		(event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		w.logger.Warn("watch: parameter directory removed", "dir", w.dir)
	}
	return 1
}

// isRelevant reports whether event is one of create, write, remove, rename
// or chmod.
func isRelevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename) ||
		event.Has(fsnotify.Chmod)
}
