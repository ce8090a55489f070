package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w := New(dir)
	w.SetDebounce(10 * time.Millisecond)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, dir
}

func TestBumpNotifiesSubscribers(t *testing.T) {
	w := New(t.TempDir())
	ch, unsubscribe := w.Subscribe()
	defer unsubscribe()

	start := w.Version()
	w.Bump()
	w.Bump()

	select {
	case v := <-ch:
		if v != start+2 {
			t.Errorf("Expected latest version %d, got %d", start+2, v)
		}
	default:
		t.Fatal("Expected a pending notification")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	w := New(t.TempDir())
	ch, unsubscribe := w.Subscribe()
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("Expected closed channel")
	}
	w.Bump()
}

func TestWatcherSeesConfigurationWrites(t *testing.T) {
	w, dir := startTestWatcher(t)
	ch, unsubscribe := w.Subscribe()
	defer unsubscribe()
	start := w.Version()

	if err := os.WriteFile(filepath.Join(dir, "settings.json.kimi"), []byte(`{}`), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-ch:
		if v <= start {
			t.Errorf("Expected version above %d, got %d", start, v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for change notification")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	w, dir := startTestWatcher(t)
	ch, unsubscribe := w.Subscribe()
	defer unsubscribe()

	for _, name := range []string{".ccdash.lock", "notes.txt", ".settings.json.tmp-1"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case v := <-ch:
		t.Errorf("Unexpected notification for unrelated files, version %d", v)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStartMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"))
	if err := w.Start(context.Background()); err == nil {
		t.Error("Expected error watching a missing directory")
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close after failed start: %v", err)
	}
}
