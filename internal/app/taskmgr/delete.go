package taskmgr

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
)

// DeleteTask removes a task of any status. A running process is signalled
// and forgotten without waiting for it to die; a pending task leaves the
// queue. The artifact, sidecar and partial file are always removed.
func (m *Manager) DeleteTask(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	m.deleteLocked(id)
	m.admitLocked()
	return nil
}

// DeleteByArtifactName removes every task producing the named artifact and
// then the files themselves, even when no task referenced them. name may
// omit the .ipa extension. Returns the number of tasks removed.
func (m *Manager) DeleteByArtifactName(name string) (int, error) {
	name, err := artifact.NormalizeName(name)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.tasks {
		if t.ArtifactFileName == name {
			m.deleteLocked(id)
			n++
		}
	}
	m.removeArtifactLocked(name)
	m.admitLocked()
	m.log.Info("artifact deleted", zap.String("file", name), zap.Int("tasks", n))
	return n, nil
}

// ClearAll terminates every process, forgets every task and sweeps the
// artifact directory of all tracked files.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.running {
		e.terminate(m.log)
	}
	tasks := len(m.tasks)
	m.running = make(map[string]*runEntry)
	m.queue = nil
	m.tasks = make(map[string]*domain.Task)
	m.updateGaugesLocked()

	files, err := m.store.Clear()
	m.log.Info("cleared all tasks", zap.Int("tasks", tasks), zap.Int("files", files))
	if err != nil {
		m.log.Warn("clear artifact dir", zap.Error(err))
		return fmt.Errorf("clear artifacts: %w", err)
	}
	return nil
}

// deleteLocked drops one task and its files. Caller holds m.mu.
func (m *Manager) deleteLocked(id string) {
	t, ok := m.tasks[id]
	if !ok {
		return
	}

	// A fail-fast task is already Failed but may still hold a slot, so the
	// running set is checked whatever the status says.
	if e, ok := m.running[id]; ok {
		e.terminate(m.log)
		delete(m.running, id)
	}
	if t.Status == domain.TaskPending {
		m.dequeueLocked(id)
	}
	delete(m.tasks, id)
	m.updateGaugesLocked()

	if t.ArtifactFileName != "" {
		m.removeArtifactLocked(t.ArtifactFileName)
	}
	m.log.Info("task deleted", zap.String("task", id), zap.String("status", string(t.Status)))
}

func (m *Manager) dequeueLocked(id string) {
	for i, qid := range m.queue {
		if qid == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// removeArtifactLocked deletes artifact files. Failures are logged only.
func (m *Manager) removeArtifactLocked(name string) {
	if err := m.store.Remove(name); err != nil {
		m.log.Warn("artifact cleanup failed", zap.String("file", name), zap.Error(err))
	}
}
