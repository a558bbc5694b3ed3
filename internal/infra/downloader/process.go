package downloader

import (
	"errors"
	"io"
	"os/exec"
	"sync"
)

// execProcess wraps a started *exec.Cmd.
type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader

	waitOnce sync.Once
	code     int
	err      error
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

// Wait returns the exit code. Safe to call more than once.
func (p *execProcess) Wait() (int, error) {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		if err == nil {
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.code = exitErr.ExitCode()
			return
		}
		p.code = -1
		p.err = err
	})
	return p.code, p.err
}

// Terminate signals the process group and returns immediately.
func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return terminateProcess(p.cmd.Process)
}
