package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/mockgov-settings/internal/api"
	"github.com/eugenenazirov/mockgov-settings/internal/config"
	"github.com/eugenenazirov/mockgov-settings/internal/metrics"
	"github.com/eugenenazirov/mockgov-settings/internal/reload"
	"github.com/eugenenazirov/mockgov-settings/internal/storage"
)

// DefaultBaseSource is served when no source is configured, resolved from the
// working directory upwards.
var DefaultBaseSource = filepath.Join("configs", "settings.local.conf")

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	reloader *reload.Reloader
	metrics  *metrics.Metrics
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
	watch    bool
}

// New initializes the application with all dependencies from the provided
// configuration. The override sources are loaded before New returns; a parse
// or validation error aborts startup.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	loader, err := newLoader(cfg)
	if err != nil {
		return nil, err
	}

	store := storage.NewAtomicStorage()
	m := metrics.New()
	reloader := reload.New(loader, store, logger,
		reload.WithMetrics(m),
		reload.WithMinInterval(cfg.ReloadInterval),
	)
	if _, err := reloader.Load(); err != nil {
		return nil, fmt.Errorf("failed to load override sources: %w", err)
	}

	handler := api.NewHandler(store,
		api.WithReloader(reloader),
		api.WithMetricsHandler(m.Handler()),
	)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage:  store,
		reloader: reloader,
		metrics:  m,
		handler:  handler,
		router:   router,
		logger:   logger,
		server:   NewServer(cfg, router),
		watch:    cfg.Watch,
	}, nil
}

func newLoader(cfg config.Config) (reload.Loader, error) {
	base := cfg.BaseSource
	if base == "" && len(cfg.OverrideSources) == 0 {
		resolved, err := resolveProjectPath(DefaultBaseSource)
		if err != nil {
			return reload.Loader{}, fmt.Errorf("no override sources configured: %w", err)
		}
		base = resolved
	}
	return reload.Loader{
		Base:      base,
		Overrides: cfg.OverrideSources,
		Provider:  cfg.Provider,
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
// When watching is enabled the sources are reloaded on change until ctx is done.
func (a *App) Start(ctx context.Context) error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()

	if a.watch {
		go func() {
			if err := a.reloader.Watch(ctx); err != nil {
				a.logger.Error("file watching stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Snapshot returns the active configuration.
func (a *App) Snapshot() (*storage.Snapshot, error) {
	return a.storage.Current()
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
