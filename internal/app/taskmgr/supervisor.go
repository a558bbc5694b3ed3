package taskmgr

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/downloader"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/metrics"
)

// captureBytes bounds how much of each stream is kept for classification.
const captureBytes = 64 * 1024

// runEntry is the running-set record of one admitted task. Its identity
// matters: a supervisor whose entry was replaced or removed is stale and
// must not touch the task table.
type runEntry struct {
	taskID  string
	started time.Time

	proc       domain.Process // nil until spawned; guarded by Manager.mu
	terminated bool           // guarded by Manager.mu

	stdout *limitedBuffer
	stderr *limitedBuffer
}

func newRunEntry(id string, started time.Time) *runEntry {
	return &runEntry{
		taskID:  id,
		started: started,
		stdout:  &limitedBuffer{max: captureBytes},
		stderr:  &limitedBuffer{max: captureBytes},
	}
}

// terminate signals the process once. Caller holds Manager.mu.
func (e *runEntry) terminate(log *zap.Logger) {
	if e.proc == nil || e.terminated {
		return
	}
	e.terminated = true
	if err := e.proc.Terminate(); err != nil {
		log.Warn("terminate failed", zap.String("task", e.taskID), zap.Error(err))
	}
}

// supervise runs one task's process from spawn to exit.
func (m *Manager) supervise(e *runEntry, inv domain.Invocation) {
	defer m.wg.Done()
	log := m.log.Named("supervisor").With(zap.String("task", e.taskID))

	proc, err := m.dl.Start(m.ctx, inv)
	if err != nil {
		m.finishSpawn(e, err)
		return
	}

	m.mu.Lock()
	if m.running[e.taskID] != e || m.closed {
		// Deleted, cleared or shut down while spawning.
		m.mu.Unlock()
		log.Info("task gone before spawn completed, terminating")
		if err := proc.Terminate(); err != nil {
			log.Warn("terminate failed", zap.Error(err))
		}
		drain(proc)
		return
	}
	e.proc = proc
	m.mu.Unlock()
	log.Debug("process started", zap.String("bundle", inv.BundleID), zap.String("output", inv.OutputPath))

	var readers sync.WaitGroup
	readers.Add(2)
	go m.readStream(&readers, e, proc.Stdout(), e.stdout)
	go m.readStream(&readers, e, proc.Stderr(), e.stderr)
	readers.Wait()

	code, waitErr := proc.Wait()
	m.finishExit(e, code, waitErr)
}

// readStream feeds every line of r through handleLine and keeps a copy.
func (m *Manager) readStream(wg *sync.WaitGroup, e *runEntry, r io.Reader, capture *limitedBuffer) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), downloader.MaxLineBytes)
	sc.Split(downloader.ScanOutputLines)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		capture.WriteLine(line)
		m.handleLine(e, line)
	}
	if err := sc.Err(); err != nil {
		m.log.Debug("stream read ended", zap.String("task", e.taskID), zap.Error(err))
		// Keep the pipe drained so the child never blocks on a full buffer.
		io.Copy(io.Discard, r)
	}
}

// handleLine records progress and applies fail-fast sentinels.
func (m *Manager) handleLine(e *runEntry, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[e.taskID] != e {
		return
	}
	t := m.tasks[e.taskID]
	if t == nil || t.Status != domain.TaskRunning {
		return
	}

	if domain.IsProgressLine(line) {
		t.LastProgress = strings.TrimSpace(line)
		t.ProgressPercent = domain.ParseProgress(line, t.Status).Percentage
		t.UpdatedAt = time.Now()
		m.log.Debug("progress", zap.String("task", t.ID), zap.Int("percent", t.ProgressPercent))
	}

	if s, ok := domain.MatchSentinel(line); ok {
		m.failLocked(t, s.Kind, sentinelMessage(s, line))
		m.log.Info("sentinel detected, terminating",
			zap.String("task", t.ID), zap.String("kind", string(s.Kind)))
		e.terminate(m.log)
	}
}

// finishSpawn fails a task whose process never started.
func (m *Manager) finishSpawn(e *runEntry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[e.taskID] != e {
		return
	}
	delete(m.running, e.taskID)
	if t := m.tasks[e.taskID]; t != nil {
		m.failLocked(t, domain.ErrorSpawn, err.Error())
		m.log.Warn("spawn failed", zap.String("task", t.ID), zap.Error(err))
	}
	m.admitLocked()
}

// finishExit settles the task once the process is gone and frees its slot.
func (m *Manager) finishExit(e *runEntry, code int, waitErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[e.taskID] != e {
		return
	}
	delete(m.running, e.taskID)
	metrics.TaskDuration.Observe(time.Since(e.started).Seconds())

	t := m.tasks[e.taskID]
	switch {
	case t == nil:
	case t.Status == domain.TaskFailed || t.ErrorKind.IsSpecific():
		// Already settled by a sentinel; keep that classification.
		m.log.Info("process exited after fail-fast", zap.String("task", t.ID), zap.Int("code", code))
	case code == 0 && waitErr == nil:
		now := time.Now()
		t.Status = domain.TaskCompleted
		t.ProgressPercent = 100
		t.UpdatedAt = now
		t.FinishedAt = now
		metrics.TasksCompleted.Inc()
		m.log.Info("task completed", zap.String("task", t.ID), zap.String("file", t.ArtifactFileName),
			zap.Duration("took", t.Duration()))
		if m.extractor != nil && m.pub != nil {
			m.wg.Add(1)
			go m.notify(t.ID, t.ArtifactFileName)
		}
	default:
		kind, msg := classifyExit(e, code, waitErr)
		m.failLocked(t, kind, msg)
		m.log.Info("task failed", zap.String("task", t.ID), zap.Int("code", code), zap.String("kind", string(kind)))
	}
	m.admitLocked()
}

func (m *Manager) failLocked(t *domain.Task, kind domain.ErrorKind, msg string) {
	now := time.Now()
	t.Status = domain.TaskFailed
	t.ErrorKind = kind
	t.Error = msg
	t.UpdatedAt = now
	t.FinishedAt = now
	metrics.TasksFailed.WithLabelValues(string(kind)).Inc()
}

// classifyExit rescans captured output for sentinels, then falls back to
// the raw output: stderr, then stdout, then the exit code.
func classifyExit(e *runEntry, code int, waitErr error) (domain.ErrorKind, string) {
	stdout := e.stdout.String()
	stderr := e.stderr.String()
	for _, out := range []string{stdout, stderr} {
		for _, line := range strings.Split(out, "\n") {
			if s, ok := domain.MatchSentinel(line); ok {
				return s.Kind, sentinelMessage(s, line)
			}
		}
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return domain.ErrorGeneral, msg
	}
	if msg := strings.TrimSpace(stdout); msg != "" {
		return domain.ErrorGeneral, msg
	}
	if waitErr != nil {
		return domain.ErrorGeneral, waitErr.Error()
	}
	return domain.ErrorGeneral, fmt.Sprintf("exit code %d", code)
}

func sentinelMessage(s domain.Sentinel, line string) string {
	return s.Message + ": " + strings.TrimSpace(line)
}

// drain empties both streams and reaps a process nobody supervises.
func drain(proc domain.Process) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(io.Discard, proc.Stdout()) }()
	go func() { defer wg.Done(); io.Copy(io.Discard, proc.Stderr()) }()
	wg.Wait()
	proc.Wait()
}

// limitedBuffer is a thread-safe buffer that keeps only the last N bytes.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	if b.buf.Len() > b.max {
		data := b.buf.Bytes()
		b.buf.Reset()
		b.buf.Write(data[len(data)-b.max:])
	}
	return n, err
}

// WriteLine appends line plus a newline.
func (b *limitedBuffer) WriteLine(line string) {
	b.Write([]byte(line + "\n"))
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
