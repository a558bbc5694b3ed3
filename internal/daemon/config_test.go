package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("HARBOR_HOME", t.TempDir())
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8080)
	}
	if cfg.Downloader.MaxConcurrent != 2 {
		t.Errorf("Downloader.MaxConcurrent = %d, want 2", cfg.Downloader.MaxConcurrent)
	}
	if cfg.Downloader.Binary != "ipatool" {
		t.Errorf("Downloader.Binary = %q, want ipatool", cfg.Downloader.Binary)
	}
	if filepath.Base(cfg.Storage.Dir) != "ipas" {
		t.Errorf("Storage.Dir = %q, want .../ipas", cfg.Storage.Dir)
	}
	if cfg.Health.Schedule != "@every 1m" {
		t.Errorf("Health.Schedule = %q", cfg.Health.Schedule)
	}
}

func TestHarborHome_Env(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HARBOR_HOME", dir)
	if got := HarborHome(); got != dir {
		t.Errorf("HarborHome() = %q, want %q", got, dir)
	}
	if got := ConfigPath(); got != filepath.Join(dir, "config.toml") {
		t.Errorf("ConfigPath() = %q", got)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Setenv("HARBOR_HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("missing file should yield defaults, got port %d", cfg.API.Port)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HARBOR_HOME", dir)
	body := `
[api]
port = 9090

[downloader]
binary = "/opt/ipatool"
max_concurrent = 0
extra_args = ["--verbose"]

[health]
schedule = "@every 30s"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("unset keys keep defaults, API.Host = %q", cfg.API.Host)
	}
	if cfg.Downloader.Binary != "/opt/ipatool" {
		t.Errorf("Downloader.Binary = %q", cfg.Downloader.Binary)
	}
	if cfg.Downloader.MaxConcurrent != 2 {
		t.Errorf("max_concurrent <= 0 should fall back to 2, got %d", cfg.Downloader.MaxConcurrent)
	}
	if len(cfg.Downloader.ExtraArgs) != 1 || cfg.Downloader.ExtraArgs[0] != "--verbose" {
		t.Errorf("Downloader.ExtraArgs = %v", cfg.Downloader.ExtraArgs)
	}
	if cfg.Health.Schedule != "@every 30s" {
		t.Errorf("Health.Schedule = %q", cfg.Health.Schedule)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HARBOR_HOME", dir)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[api\nport ="), 0o600)
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail on malformed TOML")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("HARBOR_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Downloader.MaxConcurrent = 5
	cfg.API.CORSOrigins = []string{"http://localhost:3000"}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.Downloader.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", got.Downloader.MaxConcurrent)
	}
	if len(got.API.CORSOrigins) != 1 || got.API.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %v", got.API.CORSOrigins)
	}
}

func TestNewLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "harbor.log")
	log, err := NewLogger(LoggingConfig{Level: "debug", File: file})
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	log.Info("hello")
	log.Sync()
	if _, err := os.Stat(file); err != nil {
		t.Errorf("log file should exist: %v", err)
	}

	if _, err := NewLogger(LoggingConfig{Level: "loud"}); err == nil {
		t.Error("NewLogger() should reject an unknown level")
	}
}
