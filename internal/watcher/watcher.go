// Package watcher follows the Claude configuration directory and bumps a
// version counter whenever a configuration or backup file changes.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"ccdash/config"
	"ccdash/config/storage"
)

// DefaultDebounce coalesces the burst of events a single atomic write produces.
const DefaultDebounce = 100 * time.Millisecond

type Watcher struct {
	dir      string
	debounce time.Duration
	version  atomic.Int64

	mu     sync.Mutex
	subs   map[int]chan int64
	nextID int

	debounceMu sync.Mutex
	debouncer  *time.Timer

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

func New(dir string) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		subs:     make(map[int]chan int64),
	}
	w.version.Store(time.Now().Unix())
	return w
}

// SetDebounce overrides the coalescing window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching. The directory must exist.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx)

	log.WithField("dir", w.dir).Info("watching configuration directory")
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if relevant(event) {
				w.debouncedBump(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("watcher error")
		case <-ctx.Done():
			return
		}
	}
}

// relevant drops the lock file, temp files and chmod-only events.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return config.IsConfigName(name) || storage.IsBackupName(name)
}

func (w *Watcher) debouncedBump(name string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	w.debouncer = time.AfterFunc(w.debounce, func() {
		v := w.Bump()
		log.WithFields(log.Fields{"file": filepath.Base(name), "version": v}).Debug("configuration directory changed")
	})
}

// Version returns the current counter.
func (w *Watcher) Version() int64 {
	return w.version.Load()
}

// Bump increments the counter and notifies subscribers. Callers that change
// the directory themselves use it to publish the change without waiting for
// the debounce.
func (w *Watcher) Bump() int64 {
	v := w.version.Add(1)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		// Subscribers only care about the latest version.
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
	return v
}

// Subscribe returns a channel that receives the latest version after each
// change, and a function that unsubscribes.
func (w *Watcher) Subscribe() (<-chan int64, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan int64, 1)
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(ch)
		}
	}
}

// Close stops watching. It is safe to call on a watcher that never started.
func (w *Watcher) Close() error {
	w.debounceMu.Lock()
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	w.debounceMu.Unlock()

	if w.fsw == nil {
		return nil
	}
	w.cancel()
	err := w.fsw.Close()
	<-w.done
	return err
}
