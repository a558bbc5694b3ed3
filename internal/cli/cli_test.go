package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024 / 2, "1.5 GB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.in); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintTaskList_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printTaskList(&buf, domain.GroupTasks(nil)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No tasks") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintTaskList(t *testing.T) {
	list := domain.GroupTasks([]domain.Task{
		{ID: "0123456789abcdef", AppID: "1", VersionID: "2", Status: domain.TaskRunning, LastProgress: "downloading 40% (4/10 MB, 1 MB/s)"},
		{ID: "fedcba9876543210", AppID: "3", VersionID: "latest", Status: domain.TaskFailed,
			ErrorKind: domain.ErrorTokenExpired, Error: "token expired: password token is expired"},
	})

	var buf bytes.Buffer
	if err := printTaskList(&buf, list); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"01234567", "40%", "TokenExpired: token expired", "2 total: 1 running"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Error("task ids should be shortened")
	}
}

func TestRootCommands(t *testing.T) {
	want := []string{"serve", "download", "tasks", "progress", "rm", "clear", "files", "watch", "passphrase"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
