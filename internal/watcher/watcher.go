// Package watcher notices when the session log file is deleted from under a
// running server so it can be recreated.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onDelete when the target file disappears. It watches the
// parent directory since fsnotify cannot watch a file that does not exist.
type Watcher struct {
	target   string
	parent   string
	onDelete func(context.Context)
	log      *slog.Logger
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	running bool
	stopped bool
	done    chan struct{}
}

// New creates a Watcher for target. Start must be called to begin watching.
func New(target string, onDelete func(context.Context), log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	target = filepath.Clean(target)
	return &Watcher{
		target:   target,
		parent:   filepath.Dir(target),
		onDelete: onDelete,
		log:      log,
		fsw:      fsw,
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}, nil
}

// Start watches until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped {
		return nil
	}
	if err := w.addWatch(); err != nil {
		return err
	}
	w.running = true
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	err := w.fsw.Close()
	if w.running {
		w.running = false
		<-w.done
	}
	return err
}

func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parent); err != nil {
		return err
	}
	return w.fsw.Add(w.parent)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			switch {
			case name == w.target && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.log.Warn("session log removed", slog.String("path", w.target))
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, func() { w.handleDeletion(ctx) })

			case name == w.target && ev.Op&fsnotify.Create != 0:
				// Atomic rewrites rename a temp file over the target; the
				// create that follows the removal cancels the pending callback.
				if timer != nil && timer.Stop() {
					w.log.Debug("session log replaced", slog.String("path", w.target))
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", slog.Any("err", err))
		}
	}
}

// handleDeletion runs from the debounce timer. It holds mu so that a
// callback cannot run once Stop has returned.
func (w *Watcher) handleDeletion(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if _, err := os.Stat(w.target); err == nil {
		return
	}
	w.log.Info("recreating session log", slog.String("path", w.target))
	if w.onDelete != nil {
		w.onDelete(ctx)
	}
}
