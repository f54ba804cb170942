package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Refresh reasons passed to Trigger.
const (
	ReasonFocus     = "focus"
	ReasonTokenFile = "token-file"
	ReasonRealtime  = "session-event"
)

// DefaultSettleDelay is how long the token file must stay quiet before a
// change triggers a refresh.
const DefaultSettleDelay = 100 * time.Millisecond

// Refresher receives refresh requests. *Controller implements it.
type Refresher interface {
	Trigger(reason string)
}

// TokenWatcher triggers a refresh whenever the shared token file is written,
// replaced or removed. Another quack process signing in or out changes the
// file, so this is how processes learn about each other.
type TokenWatcher struct {
	path        string
	refresher   Refresher
	settleDelay time.Duration
	watcher     *fsnotify.Watcher
	logger      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewTokenWatcher watches the token file at path. The file's directory is
// watched rather than the file, since saves replace the file by rename.
func NewTokenWatcher(path string, refresher Refresher, settleDelay time.Duration, logger *slog.Logger) (*TokenWatcher, error) {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}

	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &TokenWatcher{
		path:        path,
		refresher:   refresher,
		settleDelay: settleDelay,
		watcher:     watcher,
		logger:      logger,
	}, nil
}

// Run processes file events until ctx is cancelled, then releases the
// watcher.
func (w *TokenWatcher) Run(ctx context.Context) {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.settle()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("token file watch error", "error", err)
		}
	}
}

// settle restarts the quiet-period timer; a burst of writes yields one
// refresh.
func (w *TokenWatcher) settle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settleDelay, func() {
		w.logger.Debug("token file changed", "path", w.path)
		w.refresher.Trigger(ReasonTokenFile)
	})
}

func (w *TokenWatcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close token watcher", "error", err)
	}
}

// WatchSignals triggers a refresh for every signal received until ctx is
// cancelled. The CLI maps terminal focus to SIGUSR1.
func WatchSignals(ctx context.Context, refresher Refresher, sigs ...os.Signal) {
	if len(sigs) == 0 {
		return
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			refresher.Trigger(ReasonFocus)
		}
	}
}
