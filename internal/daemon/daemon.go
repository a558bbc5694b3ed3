package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/api"
	"github.com/ij369/ipa-harbor-sub000/internal/app/taskmgr"
	"github.com/ij369/ipa-harbor-sub000/internal/health"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/downloader"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/events"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/metadata"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/sqlite"
)

// Daemon is the Harbor runtime. It wires together all services.
type Daemon struct {
	Config    Config
	Log       *zap.Logger
	DB        *sqlite.DB
	Artifacts *artifact.Store
	Hub       *events.Hub
	Tasks     *taskmgr.Manager
	Health    *health.Checker
	Server    *api.Server
	cancel    context.CancelFunc
}

// New creates a Daemon from the config file.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := sqlite.Open(harborHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := artifact.NewStore(cfg.Storage.Dir)
	if err != nil {
		db.Close()
		return nil, err
	}

	binary, err := downloader.FindBinary(harborHome(), cfg.Downloader.Binary)
	if err != nil {
		// Tasks will fail with SpawnError until the tool is installed.
		log.Warn("downloader binary not found", zap.String("binary", cfg.Downloader.Binary), zap.Error(err))
		binary = cfg.Downloader.Binary
	}

	dl := downloader.New(downloader.Config{
		Binary:    binary,
		ExtraArgs: cfg.Downloader.ExtraArgs,
		Passphrase: func() string {
			if v, ok, err := db.GetSetting(sqlite.KeyKeychainPassphrase); err == nil && ok {
				return v
			}
			return cfg.Downloader.Passphrase
		},
	})

	extractor := metadata.NewExtractor(store)
	hub := events.NewHub(log)
	mgr := taskmgr.New(taskmgr.Config{MaxConcurrent: cfg.Downloader.MaxConcurrent}, dl, store, extractor, hub, log)

	checker := health.NewChecker(health.Deps{
		DB:          db,
		ArtifactDir: store.Dir(),
		FindDownloader: func() (string, error) {
			return downloader.FindBinary(harborHome(), cfg.Downloader.Binary)
		},
	}, log)

	srv := api.NewServer(api.Deps{
		Tasks:       mgr,
		Artifacts:   store,
		Extractor:   extractor,
		Hub:         hub,
		Settings:    db,
		Health:      checker,
		CORSOrigins: cfg.API.CORSOrigins,
	}, log)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Artifacts: store,
		Hub:       hub,
		Tasks:     mgr,
		Health:    checker,
		Server:    srv,
	}, nil
}

// Addr returns the listen address.
func (d *Daemon) Addr() string {
	return fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	go func() {
		if err := d.Health.Run(ctx, d.Config.Health.Schedule); err != nil {
			d.Log.Error("health checker stopped", zap.Error(err))
		}
	}()

	addr := d.Addr()
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     d.Server.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: /api/events streams indefinitely.
		IdleTimeout: 2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigCh:
			d.Log.Info("shutting down", zap.String("signal", sig.String()))
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Subscribers go first so streaming handlers return.
		d.Hub.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.Log.Warn("http shutdown", zap.Error(err))
		}
		if err := d.Tasks.Shutdown(shutdownCtx); err != nil {
			d.Log.Warn("task manager shutdown", zap.Error(err))
		}
		cancel()
	}()

	d.Log.Info("harbor serving",
		zap.String("addr", "http://"+addr),
		zap.String("artifacts", d.Artifacts.Dir()),
		zap.Int("max_concurrent", d.Tasks.MaxConcurrent()),
		zap.Bool("metrics", d.Config.Telemetry.Prometheus),
	)

	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-done
		d.closeStores()
		return err
	}
	<-done
	d.closeStores()
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if d.Tasks != nil {
		_ = d.Tasks.Shutdown(ctx)
	}
	if d.Hub != nil {
		d.Hub.Close()
	}
	d.closeStores()
}

func (d *Daemon) closeStores() {
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Log != nil {
		_ = d.Log.Sync()
	}
}
