package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
backend:
  base_url: "http://backend:3000"
  api_key: "k"
  rate_limit: 10
  rate_burst: 20
timeline:
  default_window_days: 21
  max_window_days: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.DefaultWindowDays() != 21 || cfg.MaxWindowDays() != 60 {
		t.Errorf("unexpected window config: %d/%d", cfg.DefaultWindowDays(), cfg.MaxWindowDays())
	}
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("POSADA_BACKEND_KEY", "from-env")
	path := writeConfig(t, `
backend:
  base_url: "http://backend:3000"
  api_key: "${POSADA_BACKEND_KEY}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.APIKey != "from-env" {
		t.Errorf("env placeholder not expanded: %q", cfg.Backend.APIKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: "http://backend:3000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.DefaultWindowDays() != 14 {
		t.Errorf("expected default window 14, got %d", cfg.DefaultWindowDays())
	}
	if cfg.MaxWindowDays() != 90 {
		t.Errorf("expected max window 90, got %d", cfg.MaxWindowDays())
	}
	if cfg.CacheTTL() != 0 {
		t.Errorf("expected cache disabled by default, got %v", cfg.CacheTTL())
	}
	if cfg.AuditRetention() != 90*24*time.Hour {
		t.Errorf("expected 90d retention, got %v", cfg.AuditRetention())
	}
}

func TestLoadRequiresBackendURL(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing backend.base_url")
	}
}
