package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w
}

func waitForOp(t *testing.T, w *Watcher, path string, op fsnotify.Op) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				t.Fatal("event channel closed before expected event")
			}
			if ev.Path == path && ev.Op&op != 0 {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v on %s", op, path)
		}
	}
}

func TestWatcherReportsCreateAndWrite(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	path := filepath.Join(dir, "PVSS_II.log")
	if err := os.WriteFile(path, []byte("line one\n"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	waitForOp(t, w, path, fsnotify.Create)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("line two\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitForOp(t, w, path, fsnotify.Write)
}

func TestWatcherClosesEventsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, ok := <-w.Events(); ok {
		t.Fatal("expected events channel to be closed")
	}
}

func TestWatcherRejectsMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	if _, err := New(missing, nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
