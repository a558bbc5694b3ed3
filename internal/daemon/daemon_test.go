package daemon

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWithConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HARBOR_HOME", home)

	cfg := DefaultConfig()
	cfg.Logging.File = ""
	cfg.Downloader.Binary = "harbor-missing-tool"
	cfg.Downloader.MaxConcurrent = 3

	d, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(filepath.Join(home, "state.db")); err != nil {
		t.Errorf("settings db should be created: %v", err)
	}
	if _, err := os.Stat(cfg.Storage.Dir); err != nil {
		t.Errorf("artifact dir should be created: %v", err)
	}
	if got := d.Tasks.MaxConcurrent(); got != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", got)
	}
	if got := d.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}

	w := httptest.NewRecorder()
	d.Server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/health = %d", w.Code)
	}
}
