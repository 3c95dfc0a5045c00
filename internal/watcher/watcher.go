// Package watcher reacts to filesystem change notifications by invoking a
// rebuild callback. It is the scoped-resource half of watch mode: Start
// subscribes, Stop unsubscribes and joins the delivery goroutine, and
// callers defer Stop so release happens on every exit path.
package watcher

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	pferrors "github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/logging"
)

// Callback receives the absolute path of a changed file. It runs
// synchronously on the notification goroutine: each rebuild completes
// before the next event is consumed, which is what serializes pipeline
// runs without any locking in the pipeline itself.
type Callback func(path string)

// Reactor watches a directory tree and invokes a callback on changes.
// A Reactor with an empty path is inert: Start and Stop are no-ops, so
// callers can wire it unconditionally and let configuration decide.
type Reactor struct {
	path     string
	callback Callback
	log      logging.Logger

	mu sync.Mutex
	fw *fsnotify.Watcher
	wg sync.WaitGroup
}

// New returns a Reactor for path. An empty path yields an inert Reactor.
func New(path string, callback Callback, log logging.Logger) *Reactor {
	return &Reactor{path: path, callback: callback, log: log.WithComponent("watch")}
}

// Start subscribes to recursive change notifications under the configured
// path and begins delivering events. Starting an already started or inert
// Reactor is a no-op. A subscription failure is a *errors.WatchError:
// fatal to the watch session, but any render pass already completed
// stays valid.
func (r *Reactor) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.path == "" || r.fw != nil {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return pferrors.NewWatchError(r.path, err)
	}

	if err := addRecursive(fw, r.path); err != nil {
		fw.Close()
		return pferrors.NewWatchError(r.path, err)
	}

	r.fw = fw
	r.wg.Add(1)
	go r.loop(fw)

	r.log.Info("watching", "path", r.path)
	return nil
}

// Stop unsubscribes and joins the delivery goroutine. Safe to call on a
// stopped or inert Reactor, and safe to call more than once.
func (r *Reactor) Stop() {
	r.mu.Lock()
	fw := r.fw
	r.fw = nil
	r.mu.Unlock()

	if fw == nil {
		return
	}
	fw.Close()
	r.wg.Wait()
	r.log.Info("stopped watching", "path", r.path)
}

// loop delivers events until the underlying watcher closes. The callback
// runs inline; there is no debouncing and no queue.
func (r *Reactor) loop(fw *fsnotify.Watcher) {
	defer r.wg.Done()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			r.handle(fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			r.log.Warn("watch error", "error", err)
		}
	}
}

func (r *Reactor) handle(fw *fsnotify.Watcher, event fsnotify.Event) {
	// New subdirectories must be added explicitly; fsnotify watches are
	// per-directory, not recursive.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(fw, event.Name); err != nil {
				r.log.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}

	r.log.Debug("change", "path", event.Name)
	if r.callback != nil {
		r.callback(event.Name)
	}
}

// addRecursive registers root and every subdirectory beneath it.
func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
