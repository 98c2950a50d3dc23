package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/mockgov-settings/internal/config"
	"github.com/eugenenazirov/mockgov-settings/internal/registry"
)

const overrideSource = `serviceplatformen.settings.cpr_endpoint = "http://serviceplatformen-mock:8081/soap/sf1520"`

func writeSource(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.OverrideSources = []string{writeSource(t, "container.conf", overrideSource)}
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	snap, err := app.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.Version != 1 {
		t.Fatalf("expected first snapshot version 1, got %d", snap.Version)
	}
	if got := snap.Settings.Serviceplatformen.CPREndpoint; got != "http://serviceplatformen-mock:8081/soap/sf1520" {
		t.Fatalf("unexpected cpr endpoint %q", got)
	}
	if len(snap.Sources) != 3 {
		t.Fatalf("expected defaults, base and override sources, got %v", snap.Sources)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.reloader == nil || app.metrics == nil {
		t.Fatalf("expected server, router, handler, reloader and metrics to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics to be served, got %d", rec.Code)
	}
}

func TestNewUsesDefaultBaseSource(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.BaseSource = ""

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	snap, err := app.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if got := snap.Settings.Serviceplatformen.CPREndpoint; got != "http://localhost:8081/soap/sf1520" {
		t.Fatalf("unexpected cpr endpoint %q", got)
	}
}

func TestNewReturnsErrorForInvalidSource(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.OverrideSources = []string{writeSource(t, "broken.conf", `serviceplatformen.settings.cpr_endpoint = "localhost:8081"`)}

	_, err := New(cfg, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected error for invalid endpoint")
	}
	if !errors.Is(err, registry.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestStartWatchesSources(t *testing.T) {
	override := writeSource(t, "container.conf", overrideSource)
	cfg := baseTestConfig("127.0.0.1:0")
	cfg.OverrideSources = []string{override}
	cfg.Watch = true

	app, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = app.Server().Close()
	})
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	want := "http://watched:8081/soap/sf1520"
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := os.WriteFile(override, []byte(`serviceplatformen.settings.cpr_endpoint = "`+want+`"`), 0o600); err != nil {
			t.Fatalf("rewrite override: %v", err)
		}
		time.Sleep(150 * time.Millisecond)
		snap, err := app.Snapshot()
		if err == nil && snap.Settings.Serviceplatformen.CPREndpoint == want {
			return
		}
	}
	t.Fatalf("expected watcher to pick up the rewritten override")
}

func TestResolveProjectPathFindsGoMod(t *testing.T) {
	path, err := resolveProjectPath("go.mod")
	if err != nil {
		t.Fatalf("resolveProjectPath returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected go.mod to exist at %s: %v", path, err)
	}
}

func TestResolveProjectPathUnknownTarget(t *testing.T) {
	if _, err := resolveProjectPath("definitely-not-a-real-file"); err == nil {
		t.Fatalf("expected error for missing resource")
	}
}

func baseTestConfig(port string) config.Config {
	base, err := resolveProjectPath(DefaultBaseSource)
	if err != nil {
		panic(err)
	}
	return config.Config{
		Port:                 port,
		BaseSource:           base,
		Provider:             "generic",
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
