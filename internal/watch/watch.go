// Package watch provides directory watching for the ingest command.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/appri/incidentdb/internal/debug"
)

// DefaultDebounce is how long the directory must be quiet before the
// callback runs.
const DefaultDebounce = 2 * time.Second

// Watcher runs a callback when matching files in a directory change
type Watcher struct {
	dir      string
	match    func(name string) bool
	callback func() error
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for dir. match filters the file names that
// trigger the callback; nil matches everything.
func NewWatcher(dir string, match func(string) bool, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := watcher.Add(absPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	if match == nil {
		match = func(string) bool { return true }
	}
	return &Watcher{
		dir:      absPath,
		match:    match,
		callback: callback,
		debounce: DefaultDebounce,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start runs the callback once, then again after every burst of changes.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	go func() {
		debounceTimer := time.NewTimer(w.debounce)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if !w.match(filepath.Base(event.Name)) {
					continue
				}
				// Copies of large workbooks emit many writes.
				debounceTimer.Reset(w.debounce)
				debounceCh = debounceTimer.C

			case <-debounceCh:
				debounceCh = nil
				if err := w.callback(); err != nil {
					debug.Error("watch callback failed", "dir", w.dir, "error", err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				debug.Error("watch error", "dir", w.dir, "error", err)

			case <-w.done:
				debounceTimer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop stops watching the directory
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
