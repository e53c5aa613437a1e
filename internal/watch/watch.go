// Package watch re-loads a kernel source whenever a file on its search path
// changes.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cwbudde/clkernel/internal/kernel"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// ErrNothingToWatch is returned by Start when no search-path directory exists.
var ErrNothingToWatch = errors.New("no search path directory exists")

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last event before reloading.
	Debounce time.Duration
	// OnLoad receives the result of every load, the initial one included.
	// It is called from the watcher goroutine, one call at a time.
	OnLoad func(*kernel.Source, error)
	Logger *slog.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Events        int
	Loads         int
	Failures      int
	LastEventPath string
	LastLoad      time.Time
}

// Watcher watches the search path of one kernel.
type Watcher struct {
	mu      sync.Mutex
	loader  *kernel.Loader
	name    string
	opts    Options
	fsw     *fsnotify.Watcher
	dirs    []string
	watched map[string]bool // base names that trigger a reload; nil means all
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

// New creates a watcher for the kernel file name.
func New(loader *kernel.Loader, name string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.OnLoad == nil {
		opts.OnLoad = func(*kernel.Source, error) {}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		loader: loader,
		name:   name,
		opts:   opts,
		fsw:    fsw,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start watches every existing directory of the search path, loads the
// kernel once and then reloads it on change. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	seen := make(map[string]bool)
	for _, dir := range w.loader.SearchPath() {
		clean := filepath.Clean(dir)
		if seen[clean] {
			continue
		}
		seen[clean] = true

		info, err := os.Stat(clean)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := w.fsw.Add(clean); err != nil {
			w.opts.Logger.Warn("Cannot watch directory", "dir", clean, "error", err)
			continue
		}
		w.dirs = append(w.dirs, clean)
	}
	if len(w.dirs) == 0 {
		w.mu.Unlock()
		return ErrNothingToWatch
	}
	w.running = true
	w.mu.Unlock()

	w.opts.Logger.Info("Watching kernel", "kernel", w.name, "dirs", w.dirs)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.fsw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.opts.Logger.Error("Error closing watcher", "error", err)
	}
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	w.reload()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.mu.Lock()
			w.stats.Events++
			w.stats.LastEventPath = event.Name
			w.mu.Unlock()

			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("Watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched == nil {
		return true
	}
	return w.watched[filepath.Base(event.Name)]
}

func (w *Watcher) reload() {
	src, err := w.loader.Load(w.name)

	w.mu.Lock()
	w.stats.Loads++
	w.stats.LastLoad = time.Now()
	if err != nil {
		// until a load succeeds any change may be the fix
		w.stats.Failures++
		w.watched = nil
	} else {
		w.watched = map[string]bool{filepath.Base(w.name): true}
		for _, inc := range src.Includes {
			w.watched[filepath.Base(inc.Target)] = true
		}
	}
	w.mu.Unlock()

	if err != nil {
		w.opts.Logger.Warn("Kernel load failed", "kernel", w.name, "error", err)
	} else {
		w.opts.Logger.Debug("Kernel loaded", "kernel", w.name, "bytes", src.Len(), "includes", len(src.Includes))
	}
	w.opts.OnLoad(src, err)
}
