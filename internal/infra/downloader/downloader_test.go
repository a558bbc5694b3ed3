package downloader

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

func TestAdapter_Args(t *testing.T) {
	a := New(Config{
		Binary:     "ipatool",
		Passphrase: func() string { return "secret" },
		ExtraArgs:  []string{"--verbose"},
	})

	args := a.Args(domain.Invocation{
		BundleID:          "com.example.app",
		OutputPath:        "/data/ipas/1_2.ipa",
		ExplicitVersionID: "2",
	})
	assert.Equal(t, []string{
		"download", "--purchase",
		"--bundle-identifier", "com.example.app",
		"--output", "/data/ipas/1_2.ipa",
		"--external-version-id", "2",
		"--keychain-passphrase", "secret",
		"--format", "json",
		"--non-interactive",
		"--verbose",
	}, args)
}

func TestAdapter_Args_NoExplicitVersion(t *testing.T) {
	a := New(Config{})
	args := a.Args(domain.Invocation{BundleID: "com.example.app", OutputPath: "x.ipa"})
	assert.NotContains(t, args, "--external-version-id")
	assert.Equal(t, DefaultBinary, a.Binary())
}

func TestScanOutputLines(t *testing.T) {
	in := "downloading 1%\rdownloading 2%\r\ndone\nlast"
	sc := bufio.NewScanner(strings.NewReader(in))
	sc.Split(ScanOutputLines)

	var lines []string
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"downloading 1%", "downloading 2%", "done", "last"}, lines)
}

func TestFindBinary(t *testing.T) {
	home := t.TempDir()
	_, err := FindBinary(home, "definitely-not-a-real-tool-xyz")
	assert.ErrorIs(t, err, domain.ErrDownloaderNotFound)

	name := "ipatool"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binDir := filepath.Join(home, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte("x"), 0o755))

	got, err := FindBinary(home, "ipatool")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binDir, name), got)

	got, err = FindBinary(home, filepath.Join(binDir, name))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binDir, name), got)
}

func TestAdapter_StartRealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture is unix only")
	}
	script := filepath.Join(t.TempDir(), "fake-ipatool")
	body := "#!/bin/sh\necho \"downloading 50% (1/2 MB, 1 MB/s)\"\necho \"boom\" 1>&2\nexit 3\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	a := New(Config{Binary: script})
	p, err := a.Start(context.Background(), domain.Invocation{BundleID: "b", OutputPath: "o.ipa"})
	require.NoError(t, err)

	out, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	errOut, err := io.ReadAll(p.Stderr())
	require.NoError(t, err)

	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Contains(t, string(out), "downloading 50%")
	assert.Contains(t, string(errOut), "boom")
}

func TestAdapter_StartMissingBinary(t *testing.T) {
	a := New(Config{Binary: filepath.Join(t.TempDir(), "missing")})
	_, err := a.Start(context.Background(), domain.Invocation{})
	assert.Error(t, err)
}

func TestFakeProcess_Terminate(t *testing.T) {
	f := NewFake()
	proc, err := f.Start(context.Background(), domain.Invocation{TaskID: "t1"})
	require.NoError(t, err)

	fp := <-f.Started()
	assert.Equal(t, "t1", fp.Inv.TaskID)
	require.NoError(t, proc.Terminate())
	assert.True(t, fp.Terminated())

	_, err = io.ReadAll(proc.Stdout())
	require.NoError(t, err)
	code, _ := proc.Wait()
	assert.Equal(t, -1, code)
}
