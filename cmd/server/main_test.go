package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
)

func repoFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("..", "..", "configs", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("missing fixture %s: %v", path, err)
	}
	return path
}

func TestRunValidate(t *testing.T) {
	var out bytes.Buffer
	err := runValidate(&out, "", []string{repoFile(t, "settings.local.conf"), repoFile(t, "container.conf")})
	if err != nil {
		t.Fatalf("runValidate returned error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "ok: 10 entries from 2 sources") {
		t.Fatalf("unexpected summary %q", out.String())
	}
}

func TestRunValidateReportsInvalidSource(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.conf")
	if err := os.WriteFile(broken, []byte("openid_connect.settings.generic.enabled = true\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	err := runValidate(&bytes.Buffer{}, "", []string{broken})
	if !errors.Is(err, registry.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunGet(t *testing.T) {
	files := []string{repoFile(t, "settings.local.conf"), repoFile(t, "container.conf")}

	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "overridden string",
			path: "serviceplatformen.settings.cpr_endpoint",
			want: "http://serviceplatformen-mock:8081/soap/sf1520\n",
		},
		{
			name: "base string",
			path: "serviceplatformen.settings.cvr_endpoint",
			want: "http://localhost:8081/soap/sf1530\n",
		},
		{
			name: "boolean",
			path: "openid_connect.settings.generic.enabled",
			want: "true\n",
		},
		{
			name: "mapping",
			path: "serviceplatformen.settings",
			want: "cpr_endpoint: http://serviceplatformen-mock:8081/soap/sf1520\n" +
				"cvr_endpoint: http://localhost:8081/soap/sf1530\n" +
				"digital_post_endpoint: http://localhost:8081/soap/sf1601\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runGet(&out, tc.path, files); err != nil {
				t.Fatalf("runGet returned error: %v", err)
			}
			if out.String() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, out.String())
			}
		})
	}
}

func TestRunGetErrors(t *testing.T) {
	files := []string{repoFile(t, "settings.local.conf")}

	if err := runGet(&bytes.Buffer{}, "serviceplatformen.settings.nope", files); !errors.Is(err, registry.ErrKeyNotFound) {
		t.Fatalf("expected key not found, got %v", err)
	}
	if err := runGet(&bytes.Buffer{}, "a..b", files); !errors.Is(err, registry.ErrInvalidKeyPath) {
		t.Fatalf("expected invalid key path, got %v", err)
	}
}
