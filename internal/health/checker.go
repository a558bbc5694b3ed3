// Package health provides scheduled health checks with auto-recovery.
// Checks: settings database, artifact directory, downloader binary.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/infra/metrics"
)

// DefaultSchedule runs the checks once a minute.
const DefaultSchedule = "@every 1m"

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is satisfied by the settings database.
type Pinger interface {
	Ping() error
}

// Deps are the resources the standard checks look at.
type Deps struct {
	DB          Pinger
	ArtifactDir string
	// FindDownloader resolves the downloader binary path.
	FindDownloader func() (string, error)
}

// Checker runs scheduled health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	log      *zap.Logger
}

// NewChecker creates a health checker with the standard checks.
func NewChecker(deps Deps, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		log: log.Named("health"),
		checks: []Check{
			{
				Name: "settings_db",
				CheckFn: func(ctx context.Context) error {
					return deps.DB.Ping()
				},
			},
			{
				Name: "artifact_dir",
				CheckFn: func(ctx context.Context) error {
					return checkArtifactDir(deps.ArtifactDir)
				},
				RecoverFn: func(ctx context.Context) error {
					return os.MkdirAll(deps.ArtifactDir, 0o755)
				},
			},
			{
				Name: "downloader",
				CheckFn: func(ctx context.Context) error {
					_, err := deps.FindDownloader()
					return err
				},
			},
		},
	}
}

// Run checks immediately, then on schedule until ctx is cancelled.
// schedule accepts cron expressions and descriptors like "@every 30s".
func (c *Checker) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c.runAll(ctx)

	sched := cron.New()
	if _, err := sched.AddFunc(schedule, func() { c.runAll(ctx) }); err != nil {
		return fmt.Errorf("health schedule %q: %w", schedule, err)
	}
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

// RunOnce runs every check synchronously.
func (c *Checker) RunOnce(ctx context.Context) {
	c.runAll(ctx)
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr == nil {
					s.Recovered = check.CheckFn(ctx) == nil
				} else {
					c.log.Warn("recovery failed", zap.String("check", check.Name), zap.Error(rerr))
				}
			}
			s.Healthy = s.Recovered
		} else {
			s.Healthy = true
		}
		if s.Healthy {
			metrics.HealthCheckStatus.WithLabelValues(s.Name).Set(1)
		} else {
			metrics.HealthCheckStatus.WithLabelValues(s.Name).Set(0)
			c.log.Warn("health check failed", zap.String("check", s.Name), zap.String("error", s.Error))
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkArtifactDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check artifact dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("artifact path %s is not a directory", dir)
	}
	return nil
}
