// Package daemon manages the Harbor daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Downloader DownloaderConfig `toml:"downloader"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Health     HealthConfig     `toml:"health"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DownloaderConfig controls the external download tool and admission.
type DownloaderConfig struct {
	Binary        string   `toml:"binary"`
	Passphrase    string   `toml:"passphrase"`
	MaxConcurrent int      `toml:"max_concurrent"`
	ExtraArgs     []string `toml:"extra_args"`
}

// StorageConfig controls where artifacts are written.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// HealthConfig controls the health check schedule.
type HealthConfig struct {
	Schedule string `toml:"schedule"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := harborHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Downloader: DownloaderConfig{
			Binary:        "ipatool",
			MaxConcurrent: 2,
		},
		Storage: StorageConfig{
			Dir: filepath.Join(homeDir, "ipas"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(homeDir, "harbor.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Health: HealthConfig{
			Schedule: "@every 1m",
		},
	}
}

// LoadConfig reads config from $HARBOR_HOME/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Downloader.MaxConcurrent <= 0 {
		cfg.Downloader.MaxConcurrent = 2
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = filepath.Join(harborHome(), "ipas")
	}

	return cfg, nil
}

// SaveConfig writes the config to $HARBOR_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(harborHome(), "config.toml")
}

// harborHome returns the Harbor data directory.
func harborHome() string {
	if env := os.Getenv("HARBOR_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".harbor")
}

// HarborHome is exported for use by other packages.
func HarborHome() string {
	return harborHome()
}
