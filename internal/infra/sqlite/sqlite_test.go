package sqlite

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "state.db")); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.SetSetting("k", "v"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db.Close()
	got, ok, err := db.GetSetting("k")
	if err != nil || !ok || got != "v" {
		t.Errorf("GetSetting() = %q, %v, %v; want v, true, nil", got, ok, err)
	}
}

// ─── Settings ───────────────────────────────────────────────────────────────

func TestSettings(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
	}{
		{"single write", []string{"alpha"}, "alpha"},
		{"overwrite", []string{"alpha", "beta"}, "beta"},
		{"empty value", []string{"alpha", ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			for _, w := range tt.writes {
				if err := db.SetSetting(KeyKeychainPassphrase, w); err != nil {
					t.Fatalf("SetSetting(%q) error: %v", w, err)
				}
			}
			got, ok, err := db.GetSetting(KeyKeychainPassphrase)
			if err != nil {
				t.Fatalf("GetSetting() error: %v", err)
			}
			if !ok {
				t.Fatal("GetSetting() ok = false, want true")
			}
			if got != tt.want {
				t.Errorf("GetSetting() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetSetting_Missing(t *testing.T) {
	db := newTestDB(t)
	got, ok, err := db.GetSetting("nope")
	if err != nil {
		t.Fatalf("GetSetting() error: %v", err)
	}
	if ok || got != "" {
		t.Errorf("GetSetting() = %q, %v; want empty, false", got, ok)
	}
}

func TestDeleteSetting(t *testing.T) {
	db := newTestDB(t)
	if err := db.SetSetting("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteSetting("k"); err != nil {
		t.Fatalf("DeleteSetting() error: %v", err)
	}
	if _, ok, _ := db.GetSetting("k"); ok {
		t.Error("key should be gone after delete")
	}
	if err := db.DeleteSetting("k"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
}
