// Package watcher provides a simplified fsnotify-based watcher over a
// single segment directory, built directly on fsnotify's own
// Operation/FileEvent vocabulary and Watcher interface, deliberately
// stripped down from a hybrid polling-plus-gitignore-aware, debounced
// design: a segment directory is flat and engine-owned, so this
// package watches only fsnotify's raw stream for create/modify/remove/
// rename on the segment's own files (graph, store, state, lock) — no
// polling fallback, no debouncing, no ignore rules.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Operation identifies the kind of change observed on a segment file.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents one observed change to a file under the watched
// segment directory.
type FileEvent struct {
	Path      string
	Operation Operation
}

// Watcher watches one segment directory for external changes — useful
// for detecting another process's flush/drop_data while this one holds
// only a read-only view (e.g. a search-serving replica).
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}

	mu      sync.Mutex
	stopped bool
}

// New creates a watcher not yet bound to any directory.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		events:    make(chan FileEvent, 64),
		errors:    make(chan error, 8),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches dir until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve segment directory: %w", err)
	}
	if err := w.fsWatcher.Add(abs); err != nil {
		return fmt.Errorf("watch segment directory: %w", err)
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.emit(FileEvent{Path: ev.Name, Operation: operationFor(ev.Op)})
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

func operationFor(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpModify
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpModify
	}
}

func (w *Watcher) emit(ev FileEvent) {
	select {
	case w.events <- ev:
	default:
		slog.Warn("watcher event buffer full, dropping event",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()))
	}
}

func (w *Watcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Events returns the channel of observed file events.
func (w *Watcher) Events() <-chan FileEvent { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Stop stops the watcher and releases the underlying fsnotify handle.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	return w.fsWatcher.Close()
}
