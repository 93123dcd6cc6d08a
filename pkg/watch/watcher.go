// Package watch triggers pipeline runs when new files land in the staging
// areas.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the staging directories and fires a run callback after
// file activity settles.
type Watcher struct {
	watcher  *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	pending bool

	// OnBatch is invoked once per settled burst of file events.
	OnBatch func(ctx context.Context) error
}

// NewWatcher creates a staging watcher. Debounce absorbs the event bursts a
// single file copy produces.
func NewWatcher(log *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		watcher:  fsWatcher,
		log:      log,
		debounce: 2 * time.Second,
	}, nil
}

// Watch registers a directory. Missing directories are skipped with a
// warning so the watcher can start before the producer does.
func (w *Watcher) Watch(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		w.log.Warn("staging directory not present, not watching", "dir", dir)
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.log.Info("watching directory", "dir", dir)
	return nil
}

// Run blocks until the context is cancelled, firing OnBatch after each
// debounced burst of create/write events. Bursts arriving while a run is in
// flight are coalesced into one follow-up run.
func (w *Watcher) Run(ctx context.Context) error {
	var timerMu sync.Mutex
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.log.Debug("file event", "path", event.Name, "op", event.Op.String())

			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.trigger(ctx)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) trigger(ctx context.Context) {
	if w.OnBatch == nil {
		return
	}

	w.mu.Lock()
	if w.running {
		// Coalesce: however many bursts land mid-run, exactly one
		// follow-up run happens afterward.
		w.pending = true
		w.mu.Unlock()
		w.log.Info("run already in progress, queuing follow-up run")
		return
	}
	w.running = true
	w.mu.Unlock()

	for {
		w.log.Info("staging activity settled, triggering run")
		if err := w.OnBatch(ctx); err != nil {
			w.log.Error("triggered run failed", "error", err)
		}

		w.mu.Lock()
		if !w.pending {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.pending = false
		w.mu.Unlock()
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
