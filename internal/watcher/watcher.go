package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"bobbin/internal/logging"
)

// Event represents a file change detected in the watched directory.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors one directory for changes using OS-level notifications.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan Event
	logger *slog.Logger
}

// New creates a Watcher for the given directory.
func New(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}

	return &Watcher{
		fsw:    fsw,
		events: make(chan Event, 256),
		logger: logger,
	}, nil
}

// Events returns the channel carrying forwarded notifications. The channel
// is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close releases the OS watch. Only needed when Run was never started;
// Run closes the watch itself on return.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run forwards notifications until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == 0 && ev.Op&fsnotify.Create == 0 {
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "watch notification error", "watch_error",
				logging.String(logging.FieldErrorHint, "check inotify limits"),
				logging.String(logging.FieldImpact, "a file change may have been missed"),
				logging.Error(err))
		}
	}
}
