package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls the dataset source and reloads it when the file's
// modification time or size changes.
type Watcher struct {
	analytics *Analytics
	interval  time.Duration
	logger    *slog.Logger
	onReload  func()

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}

	mu     sync.Mutex
	doneCh chan struct{} // nil until Start
	// source state of the last failed reload, retried only once it changes again
	failedMod  time.Time
	failedSize int64
}

type WatcherOption func(*Watcher)

func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// OnReload registers fn to run after every published reload.
func OnReload(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

func NewWatcher(analytics *Analytics, interval time.Duration, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		analytics: analytics,
		interval:  interval,
		logger:    slog.Default(),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling loop. Calls after the first are no-ops.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.doneCh = make(chan struct{})
		done := w.doneCh
		w.mu.Unlock()
		go w.watch(ctx, done)
	})
}

// Stop ends the polling loop and waits for it to exit. It is safe to call
// more than once and before Start; a Watcher cannot be restarted after Stop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })

	w.mu.Lock()
	done := w.doneCh
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Done is closed once the polling loop has exited. It returns nil before Start.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

func (w *Watcher) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.changed() {
				w.reload(ctx)
			}
		}
	}
}

func (w *Watcher) changed() bool {
	ds := w.analytics.Dataset()
	if ds.Source == "" {
		return false
	}

	info, err := os.Stat(ds.Source)
	if err != nil {
		// File might be mid-replace; keep serving the current dataset.
		return false
	}
	w.mu.Lock()
	failed := info.ModTime().Equal(w.failedMod) && info.Size() == w.failedSize
	w.mu.Unlock()
	if failed {
		return false
	}
	return !info.ModTime().Equal(ds.ModTime) || info.Size() != ds.Size
}

func (w *Watcher) reload(ctx context.Context) {
	w.logger.Info("dataset source changed, reloading")

	published, err := w.analytics.Reload(ctx)
	if err != nil {
		w.logger.Error("failed to reload dataset, keeping previous version", "error", err)
		if info, statErr := os.Stat(w.analytics.Dataset().Source); statErr == nil {
			w.mu.Lock()
			w.failedMod = info.ModTime()
			w.failedSize = info.Size()
			w.mu.Unlock()
		}
		return
	}
	w.mu.Lock()
	w.failedMod = time.Time{}
	w.failedSize = 0
	w.mu.Unlock()
	if published && w.onReload != nil {
		w.onReload()
	}
}
