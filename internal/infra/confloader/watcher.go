package confloader

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/imrelay/internal/telemetry/logger"
)

const defaultQuiet = 200 * time.Millisecond

// Watcher calls a function after the configuration file changes. Bursts
// of events, such as an editor's write then rename, produce one call once
// the file has been quiet for a short while.
type Watcher struct {
	path     string
	onChange func()
	quiet    time.Duration
	logger   logger.Logger

	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(log logger.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = log }
}

// WithQuietPeriod sets how long the file must be unchanged before
// onChange runs.
func WithQuietPeriod(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.quiet = d }
}

// NewWatcher watches path. The parent directory is watched so that files
// replaced by rename are still seen. Call Start to begin delivering
// changes.
func NewWatcher(path string, onChange func(), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		quiet:    defaultQuiet,
		logger:   logger.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("confloader: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("confloader: watch %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw
	return w, nil
}

// Start delivers changes in a background goroutine until Stop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	w.logger.Debug("watching configuration file", "path", w.path)
}

func (w *Watcher) loop() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.quiet)
			} else {
				timer.Reset(w.quiet)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info("configuration file changed", "path", w.path)
			w.onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("configuration watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop ends watching and waits for a running onChange to return. It is
// safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsw.Close()
	})
	return err
}
