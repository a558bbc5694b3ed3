// Package downloader runs the external ipatool binary for one task.
//
// Architecture:
//
//	Manager admits task → Adapter.Start(inv)
//	  → builds "download --purchase ..." arguments
//	  → spawns the tool with stdout/stderr pipes
//	  → returns a Process (two streams + exit code + Terminate)
package downloader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

// DefaultBinary is the tool looked up when none is configured.
const DefaultBinary = "ipatool"

// Config controls how the tool is invoked.
type Config struct {
	Binary    string   // Absolute path or name resolved via FindBinary
	ExtraArgs []string // Appended verbatim after the generated flags
	// Passphrase returns the keychain passphrase at invocation time so a
	// changed setting applies to the next task without a restart.
	Passphrase func() string
}

// Adapter implements domain.Downloader on top of os/exec.
type Adapter struct {
	cfg Config
}

// New creates an adapter. Binary must already be resolved.
func New(cfg Config) *Adapter {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return &Adapter{cfg: cfg}
}

// Binary returns the executable this adapter launches.
func (a *Adapter) Binary() string { return a.cfg.Binary }

// Args builds the tool arguments for an invocation.
func (a *Adapter) Args(inv domain.Invocation) []string {
	args := []string{
		"download",
		"--purchase",
		"--bundle-identifier", inv.BundleID,
		"--output", inv.OutputPath,
	}
	if inv.ExplicitVersionID != "" {
		args = append(args, "--external-version-id", inv.ExplicitVersionID)
	}
	passphrase := ""
	if a.cfg.Passphrase != nil {
		passphrase = a.cfg.Passphrase()
	}
	args = append(args,
		"--keychain-passphrase", passphrase,
		"--format", "json",
		"--non-interactive",
	)
	return append(args, a.cfg.ExtraArgs...)
}

// Start spawns the tool. The returned error is the native spawn failure.
// ctx only bounds the spawn itself; use Process.Terminate to stop a run.
func (a *Adapter) Start(ctx context.Context, inv domain.Invocation) (domain.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(a.cfg.Binary, a.Args(inv)...)
	configureProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// FindBinary resolves the tool: an absolute path is used as is, otherwise
// home/bin is searched before PATH.
func FindBinary(home, name string) (string, error) {
	if name == "" {
		name = DefaultBinary
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrDownloaderNotFound, name)
		}
		return name, nil
	}

	exe := name
	if runtime.GOOS == "windows" && filepath.Ext(exe) == "" {
		exe += ".exe"
	}

	binPath := filepath.Join(home, "bin", exe)
	if _, err := os.Stat(binPath); err == nil {
		return binPath, nil
	}
	if path, err := exec.LookPath(exe); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s (looked in %s and PATH)",
		domain.ErrDownloaderNotFound, exe, filepath.Join(home, "bin"))
}
