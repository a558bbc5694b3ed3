// Package taskmgr orchestrates download tasks: creation with per-job dedup,
// a FIFO queue, bounded admission into a running set, per-task process
// supervision and completion fan-out.
//
// Architecture:
//
//	CreateTask → dedup (delete same job key + orphan artifact) → queue
//	  → admit while running < MaxConcurrent → supervise (own goroutine)
//	  → stream lines: progress | sentinel (fail fast)
//	  → exit: completed (extract + publish) | failed (pull only)
//
// All task-table, queue and running-set mutations happen under one mutex.
// Admission runs on enqueue, on process exit and on deletion, so a freed
// slot is refilled immediately instead of on a poll tick.
package taskmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/metrics"
)

// DefaultMaxConcurrent is used when Config.MaxConcurrent is not positive.
const DefaultMaxConcurrent = 2

// ErrClosed is returned by CreateTask after Shutdown.
var ErrClosed = errors.New("task manager is shut down")

// Config holds the static scheduling limits.
type Config struct {
	MaxConcurrent int
}

// CreateRequest asks for one artifact download.
type CreateRequest struct {
	AppID             string `json:"appId"`
	VersionID         string `json:"versionId"`
	BundleID          string `json:"bundleId"`
	ResolvedVersionID string `json:"resolvedVersionId,omitempty"`
}

// Stats summarizes the scheduler state.
type Stats struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Queued        int `json:"queued"`
	Slots         int `json:"slotsInUse"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Manager owns every task for the lifetime of the process.
type Manager struct {
	cfg       Config
	dl        domain.Downloader
	store     *artifact.Store
	extractor domain.MetadataExtractor
	pub       domain.Publisher
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	tasks   map[string]*domain.Task
	queue   []string             // FIFO of pending task ids
	running map[string]*runEntry // admitted tasks whose process has not exited
	closed  bool
}

// New creates a manager. extractor and pub may be nil, in which case
// completions are not announced.
func New(cfg Config, dl domain.Downloader, store *artifact.Store, extractor domain.MetadataExtractor, pub domain.Publisher, log *zap.Logger) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:       cfg,
		dl:        dl,
		store:     store,
		extractor: extractor,
		pub:       pub,
		log:       log.Named("taskmgr"),
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(map[string]*domain.Task),
		running:   make(map[string]*runEntry),
	}
}

// MaxConcurrent returns the admission limit in effect.
func (m *Manager) MaxConcurrent() int { return m.cfg.MaxConcurrent }

// CreateTask replaces any task for the same job key with a fresh pending
// one. When it returns, exactly one task exists for the key and no stale
// artifact for it remains on disk.
func (m *Manager) CreateTask(ctx context.Context, req CreateRequest) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}
	key := domain.JobKey{AppID: req.AppID, VersionID: req.VersionID}
	if err := key.Validate(); err != nil {
		return domain.Task{}, err
	}
	if req.BundleID == "" {
		return domain.Task{}, domain.ErrMissingBundle
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Task{}, ErrClosed
	}

	name := domain.ArtifactFileName(key)
	for id, t := range m.tasks {
		if t.Key() == key {
			m.log.Info("replacing task for job key",
				zap.String("task", id), zap.String("key", key.String()), zap.String("status", string(t.Status)))
			m.deleteLocked(id)
		}
	}
	m.removeArtifactLocked(name)

	now := time.Now()
	t := &domain.Task{
		ID:                uuid.NewString(),
		AppID:             req.AppID,
		VersionID:         req.VersionID,
		ResolvedVersionID: req.ResolvedVersionID,
		BundleID:          req.BundleID,
		Status:            domain.TaskPending,
		ArtifactFileName:  name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.tasks[t.ID] = t
	m.queue = append(m.queue, t.ID)
	metrics.TasksCreated.Inc()
	m.log.Info("task created", zap.String("task", t.ID), zap.String("key", key.String()), zap.String("bundle", t.BundleID))

	m.admitLocked()
	return *t, nil
}

// admitLocked promotes queued tasks while slots are free. Caller holds m.mu.
func (m *Manager) admitLocked() {
	for !m.closed && len(m.running) < m.cfg.MaxConcurrent && len(m.queue) > 0 {
		id := m.queue[0]
		m.queue = m.queue[1:]

		t, ok := m.tasks[id]
		if !ok || t.Status != domain.TaskPending {
			continue
		}
		now := time.Now()
		t.Status = domain.TaskRunning
		t.StartedAt = now
		t.UpdatedAt = now
		metrics.QueueWait.Observe(now.Sub(t.CreatedAt).Seconds())

		e := newRunEntry(id, now)
		m.running[id] = e
		inv := domain.Invocation{
			TaskID:            id,
			BundleID:          t.BundleID,
			OutputPath:        m.store.Path(t.ArtifactFileName),
			ExplicitVersionID: t.ExplicitVersionID(),
		}
		m.log.Info("task admitted", zap.String("task", id), zap.Int("running", len(m.running)), zap.Int("queued", len(m.queue)))

		m.wg.Add(1)
		go m.supervise(e, inv)
	}
	m.updateGaugesLocked()
}

func (m *Manager) updateGaugesLocked() {
	metrics.TasksRunning.Set(float64(len(m.running)))
	metrics.TasksQueued.Set(float64(len(m.queue)))
}

// Get returns a copy of one task.
func (m *Manager) Get(id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return *t, nil
}

// List returns every task grouped by status with parsed progress.
func (m *Manager) List() domain.TaskList {
	return domain.GroupTasks(m.snapshot())
}

// Progress returns snapshots of tasks that are pending or running.
func (m *Manager) Progress() []domain.ProgressSnapshot {
	list := m.List()
	out := make([]domain.ProgressSnapshot, 0, len(list.Running)+len(list.Pending))
	for _, v := range list.Running {
		out = append(out, domain.Snapshot(v.Task))
	}
	for _, v := range list.Pending {
		out = append(out, domain.Snapshot(v.Task))
	}
	return out
}

// Stats returns counts per status plus queue and slot usage.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Total:         len(m.tasks),
		Queued:        len(m.queue),
		Slots:         len(m.running),
		MaxConcurrent: m.cfg.MaxConcurrent,
	}
	for _, t := range m.tasks {
		switch t.Status {
		case domain.TaskPending:
			s.Pending++
		case domain.TaskRunning:
			s.Running++
		case domain.TaskCompleted:
			s.Completed++
		case domain.TaskFailed:
			s.Failed++
		}
	}
	return s
}

func (m *Manager) snapshot() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, *t)
	}
	return out
}

// Shutdown stops admitting, terminates every running process and waits for
// supervisors and pending notifications until ctx expires. Artifacts and
// tasks are left in place.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		m.cancel()
		for id, e := range m.running {
			m.log.Info("terminating on shutdown", zap.String("task", id))
			e.terminate(m.log)
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for supervisors: %w", ctx.Err())
	}
}
