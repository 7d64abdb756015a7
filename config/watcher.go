package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/rendercache/observe"
)

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	logger    observe.Logger
	debounce  time.Duration
	mu        sync.RWMutex
	callbacks []func(*Config)
	current   *Config
	started   bool
	done      chan struct{}
}

// NewWatcher loads path and prepares to watch it. logger may be nil.
func NewWatcher(path string, logger observe.Logger) (*Watcher, error) {
	if logger == nil {
		logger = observe.NopLogger()
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		path:     path,
		logger:   logger.With(observe.F("component", "config"), observe.F("path", path)),
		debounce: 250 * time.Millisecond,
		current:  cfg,
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers a callback run after each successful reload.
// Callbacks run one at a time on the watcher goroutine.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// SetDebounce sets how long to wait for writes to settle. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start watches the file's directory, so editors that replace the file
// by rename are still seen.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.started = true
	go w.watch()
	return nil
}

// Stop ends watching and waits for the watch goroutine to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	return err
}

func (w *Watcher) watch() {
	defer close(w.done)

	ctx := context.Background()
	base := filepath.Base(w.path)
	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, "config watcher error", observe.F("error", err.Error()))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error(ctx, "config reload failed", observe.F("error", err.Error()))
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info(ctx, "configuration reloaded")
	for _, cb := range callbacks {
		cb(cfg)
	}
}
