// Package daemon keeps the site up to date by running the pipeline whenever
// source documents change or a fixed interval elapses.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mdpages/internal/logfields"
)

// Trigger names passed to RunFunc.
const (
	TriggerStartup  = "startup"
	TriggerWatch    = "watch"
	TriggerInterval = "interval"
)

// RunFunc performs one run. It is never called concurrently.
type RunFunc func(ctx context.Context, trigger string)

// Watcher runs RunFunc at startup, after debounced content changes and on an
// optional interval.
type Watcher struct {
	contentRoot string
	extension   string
	debounce    time.Duration
	interval    time.Duration
	run         RunFunc
	logger      *slog.Logger
}

// NewWatcher creates a watcher for documents with extension under contentRoot.
func NewWatcher(contentRoot, extension string, debounce, interval time.Duration, run RunFunc) *Watcher {
	return &Watcher{
		contentRoot: contentRoot,
		extension:   extension,
		debounce:    debounce,
		interval:    interval,
		run:         run,
		logger:      slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logger
	return w
}

// Run blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := setupFileWatcher(w.contentRoot, w.logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	requests := make(chan string, 1)
	request := func(trigger string) {
		select {
		case requests <- trigger:
		default:
			// A run is already queued; it will pick up this change too.
		}
	}
	debounced := newDebouncer(w.debounce, func() { request(TriggerWatch) })
	defer debounced.stop()

	if w.interval > 0 {
		sched, err := NewScheduler()
		if err != nil {
			return err
		}
		if _, err := sched.ScheduleEvery("interval-run", w.interval, func() { request(TriggerInterval) }); err != nil {
			return err
		}
		sched.Start()
		defer func() { _ = sched.Stop(context.Background()) }()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, requests)
	}()
	defer wg.Wait()

	request(TriggerStartup)
	w.logger.Info("Watching for changes", logfields.Path(w.contentRoot),
		slog.Duration("debounce", w.debounce), slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watch stopped")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(watcher, ev, debounced.trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// worker is the only caller of run, so runs never overlap.
func (w *Watcher) worker(ctx context.Context, requests <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-requests:
			w.logger.Debug("Run requested", slog.String("trigger", trigger))
			w.run(ctx, trigger)
		}
	}
}

func (w *Watcher) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, w.logger)
			trigger()
			return
		}
	}
	if filepath.Ext(ev.Name) != w.extension {
		return
	}
	// Deleted documents leave their pages in place, so removals need no run.
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func setupFileWatcher(root string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := addDirsRecursive(watcher, root, logger); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger runs.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

// debouncer calls fn once after calls to trigger stop for the quiet period.
type debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
	fn    func()
}

func newDebouncer(quiet time.Duration, fn func()) *debouncer {
	return &debouncer{quiet: quiet, fn: fn}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
