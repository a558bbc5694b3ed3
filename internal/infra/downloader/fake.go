package downloader

import (
	"context"
	"io"
	"sync"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

// ─── Fake Downloader (for testing without ipatool) ─────────────────────────

// FakeDownloader implements domain.Downloader with scriptable processes.
type FakeDownloader struct {
	mu       sync.Mutex
	procs    []*FakeProcess
	started  chan *FakeProcess
	startErr error
}

// NewFake creates a fake whose Start always succeeds.
func NewFake() *FakeDownloader {
	return &FakeDownloader{started: make(chan *FakeProcess, 64)}
}

// FailStart makes every following Start return err.
func (f *FakeDownloader) FailStart(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

// Start records the invocation and returns a process the test drives.
func (f *FakeDownloader) Start(_ context.Context, inv domain.Invocation) (domain.Process, error) {
	f.mu.Lock()
	if f.startErr != nil {
		err := f.startErr
		f.mu.Unlock()
		return nil, err
	}
	p := newFakeProcess(inv)
	f.procs = append(f.procs, p)
	f.mu.Unlock()

	select {
	case f.started <- p:
	default:
	}
	return p, nil
}

// Started delivers processes in spawn order.
func (f *FakeDownloader) Started() <-chan *FakeProcess { return f.started }

// Processes returns every process spawned so far.
func (f *FakeDownloader) Processes() []*FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeProcess, len(f.procs))
	copy(out, f.procs)
	return out
}

// FakeProcess is a domain.Process backed by in-memory pipes.
type FakeProcess struct {
	Inv domain.Invocation

	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter

	exitCh     chan int
	exitOnce   sync.Once
	terminated chan struct{}
	termOnce   sync.Once
	waitMu     sync.Mutex
	waited     bool
	code       int
	mu         sync.Mutex
	hold       bool
}

func newFakeProcess(inv domain.Invocation) *FakeProcess {
	p := &FakeProcess{
		Inv:        inv,
		exitCh:     make(chan int, 1),
		terminated: make(chan struct{}),
	}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *FakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *FakeProcess) Stderr() io.Reader { return p.stderrR }

// WriteStdout emits one line on stdout. Blocks until the reader consumes it.
func (p *FakeProcess) WriteStdout(line string) error {
	_, err := io.WriteString(p.stdoutW, line+"\n")
	return err
}

// WriteStderr emits one line on stderr.
func (p *FakeProcess) WriteStderr(line string) error {
	_, err := io.WriteString(p.stderrW, line+"\n")
	return err
}

// Exit closes both streams and makes Wait return code.
func (p *FakeProcess) Exit(code int) {
	p.exitOnce.Do(func() {
		p.stdoutW.Close()
		p.stderrW.Close()
		p.exitCh <- code
	})
}

// Wait blocks until Exit (or Terminate) is called.
func (p *FakeProcess) Wait() (int, error) {
	p.waitMu.Lock()
	defer p.waitMu.Unlock()
	if !p.waited {
		p.code = <-p.exitCh
		p.waited = true
	}
	return p.code, nil
}

// HoldOnTerminate makes Terminate record the signal without exiting, like a
// tool that ignores SIGTERM. The test then picks the exit code with Exit.
func (p *FakeProcess) HoldOnTerminate() {
	p.mu.Lock()
	p.hold = true
	p.mu.Unlock()
}

// Terminate behaves like a signalled process: streams end, exit code -1.
func (p *FakeProcess) Terminate() error {
	p.termOnce.Do(func() { close(p.terminated) })
	p.mu.Lock()
	hold := p.hold
	p.mu.Unlock()
	if !hold {
		p.Exit(-1)
	}
	return nil
}

// Terminated reports whether Terminate was called.
func (p *FakeProcess) Terminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

// TerminatedCh is closed on Terminate.
func (p *FakeProcess) TerminatedCh() <-chan struct{} { return p.terminated }
