package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the file must stay quiet before the handler runs.
const DefaultDebounce = 500 * time.Millisecond

// Handler is invoked once per debounced change.
type Handler func(ctx context.Context) error

// Watcher calls a Handler when a single file changes.
type Watcher struct {
	path     string
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger
	runNow   bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for change and handler-error messages.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithInitialRun makes Run invoke the handler once before waiting for changes.
func WithInitialRun() Option {
	return func(w *Watcher) { w.runNow = true }
}

// New creates a Watcher for path.
func New(path string, handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is cancelled and returns nil in that case. Handler
// errors are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching for changes", zap.String("path", w.path), zap.Duration("debounce", w.debounce))

	if w.runNow {
		w.invoke(ctx)
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", zap.String("op", event.Op.String()))
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			pending = false
			w.invoke(ctx)
		}
	}
}

func (w *Watcher) invoke(ctx context.Context) {
	start := time.Now()
	if err := w.handler(ctx); err != nil {
		w.logger.Error("handler failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("handler finished", zap.String("path", w.path), zap.Duration("elapsed", time.Since(start)))
}
