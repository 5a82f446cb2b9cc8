// Package watch reports settled changes to a single file.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temporary file over the original keep
// producing events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before a change fires.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher watches one file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
	fs       *fsnotify.Watcher

	closeOnce sync.Once
	closeErr  error
}

// New starts watching path. Events that arrive before Run are buffered by
// fsnotify and not lost.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.fs = fs
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run calls fn once the file has been quiet for the debounce period after
// a write or create. fn runs on the Run goroutine, so calls never overlap.
// Run returns nil when ctx is done and ErrClosed after Close.
func (w *Watcher) Run(ctx context.Context, fn func()) error {
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return ErrClosed
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				fire = time.After(w.debounce)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.logger.Debug("watched file moved away", zap.String("path", w.path))
			}

		case <-fire:
			fire = nil
			w.logger.Debug("watched file changed", zap.String("path", w.path))
			fn()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Warn("file watcher error", zap.String("path", w.path), zap.Error(err))
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}
