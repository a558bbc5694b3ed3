//go:build !windows

package downloader

import (
	"os"
	"os/exec"
	"syscall"
)

// configureProcess puts the tool in its own process group so Terminate
// reaches any helpers it forks.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcess(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		return p.Signal(syscall.SIGTERM)
	}
	return nil
}
