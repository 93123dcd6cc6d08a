package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherTriggersAfterActivity(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.debounce = 50 * time.Millisecond

	if err := w.Watch(dir); err != nil {
		t.Fatal(err)
	}

	triggered := make(chan struct{}, 1)
	w.OnBatch = func(ctx context.Context) error {
		select {
		case triggered <- struct{}{}:
		default:
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "sales_2026-08-01.csv")
	if err := os.WriteFile(path, []byte("sale_id\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not trigger after file activity")
	}
}

func TestWatcherCoalescesTriggersDuringRun(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	runs := 0
	w.OnBatch = func(ctx context.Context) error {
		mu.Lock()
		runs++
		first := runs == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.trigger(context.Background())
		close(done)
	}()
	<-started

	// Bursts landing while the first run is in flight collapse into exactly
	// one follow-up run.
	w.trigger(context.Background())
	w.trigger(context.Background())
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if runs != 2 {
		t.Errorf("expected 2 runs (initial + one coalesced follow-up), got %d", runs)
	}
}

func TestWatcherSkipsMissingDirectory(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing directory must not error: %v", err)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
