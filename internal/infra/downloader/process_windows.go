package downloader

import (
	"os"
	"os/exec"
	"syscall"
)

// configureProcess hides the console window for the tool on Windows.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}

// terminateProcess kills the tool; Windows has no SIGTERM.
func terminateProcess(p *os.Process) error {
	return p.Kill()
}
