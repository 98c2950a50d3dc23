package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "MOCKGOV_BASE", "MOCKGOV_OVERRIDES", "MOCKGOV_PROVIDER",
		"MOCKGOV_WATCH", "LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Provider != "generic" {
		t.Fatalf("expected default provider generic, got %s", cfg.Provider)
	}
	if cfg.BaseSource != "" || len(cfg.OverrideSources) != 0 {
		t.Fatalf("expected no sources by default, got %q %v", cfg.BaseSource, cfg.OverrideSources)
	}
	if cfg.Watch {
		t.Fatalf("expected watching to be off by default")
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.ReloadInterval != time.Second {
		t.Fatalf("unexpected reload interval: %s", cfg.ReloadInterval)
	}
	if !cfg.EnableRequestLogging {
		t.Fatalf("expected request logging to be enabled by default")
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MOCKGOV_BASE", "configs/settings.local.conf")
	t.Setenv("MOCKGOV_OVERRIDES", "container.conf, ,secrets.yaml")
	t.Setenv("MOCKGOV_WATCH", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.BaseSource != "configs/settings.local.conf" {
		t.Fatalf("unexpected base source %q", cfg.BaseSource)
	}
	if want := []string{"container.conf", "secrets.yaml"}; len(cfg.OverrideSources) != 2 || cfg.OverrideSources[0] != want[0] || cfg.OverrideSources[1] != want[1] {
		t.Fatalf("unexpected override sources: %v", cfg.OverrideSources)
	}
	if !cfg.Watch {
		t.Fatalf("expected watching to be enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %s", cfg.LogLevel)
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("unexpected rate limit %v", cfg.RateLimitRPS)
	}
}

func TestLoadRejectsBadWatchFlag(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOCKGOV_WATCH", "sometimes")

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for non-boolean MOCKGOV_WATCH")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MOCKGOV_PROVIDER", "keycloak")

	path := writeConfig(t, `
port: "9100"
base_source: settings.local.yaml
override_sources:
  - container.conf
provider: mitid
enable_request_logging: false
reload:
  interval: 250ms
rate_limit:
  rps: 0
`)

	port := "9200"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port, OverrideSources: []string{"cli.conf"}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9200" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.Provider != "mitid" {
		t.Fatalf("expected YAML provider to win over environment, got %s", cfg.Provider)
	}
	if cfg.BaseSource != "settings.local.yaml" {
		t.Fatalf("unexpected base source %q", cfg.BaseSource)
	}
	if len(cfg.OverrideSources) != 1 || cfg.OverrideSources[0] != "cli.conf" {
		t.Fatalf("expected CLI override sources, got %v", cfg.OverrideSources)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging to be disabled by YAML")
	}
	if cfg.ReloadInterval != 250*time.Millisecond {
		t.Fatalf("unexpected reload interval %s", cfg.ReloadInterval)
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected explicit zero rate limit, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("expected default burst to survive, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad duration", body: "idle_timeout: soon\n"},
		{name: "bad log level", body: "log_level: chatty\n"},
		{name: "dotted provider", body: "provider: generic.settings\n"},
		{name: "negative burst", body: "rate_limit:\n  burst: -1\n"},
		{name: "malformed yaml", body: "port: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := Load(&CLIOverrides{ConfigFile: writeConfig(t, tc.body)}); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestParseSourceList(t *testing.T) {
	got := parseSourceList(" a.conf ,, b.yaml ,")
	if len(got) != 2 || got[0] != "a.conf" || got[1] != "b.yaml" {
		t.Fatalf("unexpected sources: %v", got)
	}
	if got := parseSourceList(" , "); len(got) != 0 {
		t.Fatalf("expected no sources, got %v", got)
	}
}
