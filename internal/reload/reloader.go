package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eugenenazirov/mockgov-settings/internal/metrics"
	"github.com/eugenenazirov/mockgov-settings/internal/storage"
)

// ErrThrottled is returned by Reload when called again within the minimum
// interval.
var ErrThrottled = errors.New("reload throttled, retry shortly")

// ErrWatchUnsupported is returned by Watch when the loader reads from a
// filesystem other than the OS one.
var ErrWatchUnsupported = errors.New("watching requires the OS filesystem")

const defaultDebounce = 100 * time.Millisecond

// Reloader rebuilds the configuration and swaps it into a store.
type Reloader struct {
	loader   Loader
	store    storage.Storage
	logger   *zap.Logger
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
	debounce time.Duration

	mu sync.Mutex
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithMetrics records every load in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reloader) {
		r.metrics = m
	}
}

// WithMinInterval spaces reloads at least d apart. Zero or negative disables
// throttling.
func WithMinInterval(d time.Duration) Option {
	return func(r *Reloader) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithDebounce sets how long Watch waits for a burst of file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// New creates a Reloader. Nothing is loaded until Load is called.
func New(loader Loader, store storage.Storage, logger *zap.Logger, opts ...Option) *Reloader {
	r := &Reloader{
		loader:   loader,
		store:    store,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load performs the initial load. Callers should refuse to start when it fails.
func (r *Reloader) Load() (*storage.Snapshot, error) {
	return r.apply("initial")
}

// Reload rebuilds and swaps the configuration. On failure the previous
// snapshot stays active and the error is returned.
func (r *Reloader) Reload(ctx context.Context) (*storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.limiter.Allow() {
		return nil, ErrThrottled
	}
	return r.apply("reload")
}

func (r *Reloader) apply(trigger string) (*storage.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.loader.Build()
	if err != nil {
		r.metrics.ObserveFailure()
		r.logger.Error("configuration rejected",
			zap.String("trigger", trigger),
			zap.Strings("sources", r.loader.Files()),
			zap.Error(err),
		)
		return nil, err
	}
	if err := r.store.Replace(snap); err != nil {
		r.metrics.ObserveFailure()
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	entries := snap.Registry.Len()
	r.metrics.ObserveSuccess(entries, snap.Version, snap.LoadedAt)
	r.logger.Info("configuration loaded",
		zap.String("trigger", trigger),
		zap.Uint64("version", snap.Version),
		zap.Strings("sources", snap.Sources),
		zap.Int("entries", entries),
		zap.Bool("openid_connect_enabled", snap.Settings.OpenIDConnect.Enabled),
	)
	return snap, nil
}

// Watch reloads whenever one of the loader's files is written, created or
// renamed, until ctx is cancelled. Bursts of events are coalesced; throttled
// reloads wait for their turn instead of being dropped. Events come from the
// OS, so a loader with a non-OS Fs gets ErrWatchUnsupported.
func (r *Reloader) Watch(ctx context.Context) error {
	if r.loader.Fs != nil {
		if _, ok := r.loader.Fs.(*afero.OsFs); !ok {
			return ErrWatchUnsupported
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	watched := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, path := range r.loader.Files() {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	// Watching directories keeps working across editors that replace files.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	r.logger.Info("watching override sources", zap.Strings("sources", r.loader.Files()))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[abs]; !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(r.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", zap.Error(err))
		case <-timer.C:
			if err := r.limiter.Wait(ctx); err != nil {
				return nil
			}
			// failures are logged and counted by apply; keep watching
			_, _ = r.apply("watch")
		}
	}
}
