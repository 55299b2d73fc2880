package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_KEY",
		"SUPABASE_JWT_SECRET", "GATEWAY_ADDR", "GATEWAY_ALLOWED_ORIGINS",
		"LOG_LEVEL", "REMINDER_SCHEDULE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFallsBackToPlaceholders(t *testing.T) {
	clearPlatformEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load must not fail on missing credentials: %v", err)
	}
	if cfg.Platform.URL != PlaceholderURL {
		t.Fatalf("expected placeholder URL, got %s", cfg.Platform.URL)
	}
	if cfg.Platform.AnonKey != PlaceholderAnonKey {
		t.Fatalf("expected placeholder key, got %s", cfg.Platform.AnonKey)
	}
	if cfg.PlatformConfigured() {
		t.Fatal("placeholders must not count as configured")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("SUPABASE_URL", "https://proj.example.co")
	t.Setenv("SUPABASE_ANON_KEY", "real-key")
	t.Setenv("GATEWAY_ADDR", ":9999")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.PlatformConfigured() {
		t.Fatal("real credentials must count as configured")
	}
	if cfg.Gateway.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", cfg.Gateway.Addr)
	}
	if cfg.Platform.Timeout != 30*time.Second {
		t.Fatalf("default timeout not applied: %v", cfg.Platform.Timeout)
	}
}

func TestLoadFileOverlaysYAML(t *testing.T) {
	clearPlatformEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("log_level: debug\ngateway:\n  addr: \":7070\"\nplatform:\n  url: https://yaml.example.co\n  anon_key: yaml-key\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path, nil)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Gateway.Addr != ":7070" {
		t.Fatalf("yaml overlay not applied: %+v", cfg)
	}
	if !cfg.PlatformConfigured() {
		t.Fatal("yaml credentials must count as configured")
	}
}

func TestOriginsParsesCSV(t *testing.T) {
	g := Gateway{AllowedOrigins: "http://a.example, http://b.example ,,"}
	got := g.Origins()
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
