package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		status TaskStatus
		want   Progress
	}{
		{
			name:   "full line",
			text:   "downloading  42% |████████      | (10/24 MB, 1.2 MB/s)",
			status: TaskRunning,
			want:   Progress{Percentage: 42, SizeProgress: "10/24 MB", DownloadSpeed: "1.2 MB/s"},
		},
		{
			name:   "no text yet",
			text:   "",
			status: TaskRunning,
			want:   Progress{Percentage: 0, SizeProgress: "waiting...", DownloadSpeed: ""},
		},
		{
			name:   "completed ignores text",
			text:   "downloading  3% | | (1/24 MB, 1 MB/s)",
			status: TaskCompleted,
			want:   Progress{Percentage: 100, SizeProgress: "completed"},
		},
		{
			name:   "completed without text",
			status: TaskCompleted,
			want:   Progress{Percentage: 100, SizeProgress: "completed"},
		},
		{
			name:   "percentage only",
			text:   "downloading 7%",
			status: TaskRunning,
			want:   Progress{Percentage: 7, SizeProgress: "waiting..."},
		},
		{
			name:   "fractional percentage truncates",
			text:   "downloading 99.9% (23.9/24 MB, 800 kB/s)",
			status: TaskRunning,
			want:   Progress{Percentage: 99, SizeProgress: "23.9/24 MB", DownloadSpeed: "800 kB/s"},
		},
		{
			name:   "clamped",
			text:   "downloading 140% (1/1 MB, 1 MB/s)",
			status: TaskRunning,
			want:   Progress{Percentage: 100, SizeProgress: "1/1 MB", DownloadSpeed: "1 MB/s"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProgress(tt.text, tt.status))
		})
	}
}

func TestIsProgressLine(t *testing.T) {
	assert.True(t, IsProgressLine("downloading  42% |███| (10/24 MB, 1.2 MB/s)"))
	assert.True(t, IsProgressLine("Downloading 5%"))
	assert.False(t, IsProgressLine("downloading app metadata"))
	assert.False(t, IsProgressLine(`{"success":true}`))
}

func TestMatchSentinel(t *testing.T) {
	s, ok := MatchSentinel("ERR error=\"password token is expired\"")
	require.True(t, ok)
	assert.Equal(t, ErrorTokenExpired, s.Kind)

	s, ok = MatchSentinel("{\"error\":\"License Required\"}")
	require.True(t, ok)
	assert.Equal(t, ErrorLicenseRequired, s.Kind)

	_, ok = MatchSentinel("downloading 10%")
	assert.False(t, ok)
}

func TestGroupTasks(t *testing.T) {
	base := time.Now()
	tasks := []Task{
		{ID: "c", Status: TaskCompleted, CreatedAt: base.Add(2 * time.Second)},
		{ID: "a", Status: TaskPending, CreatedAt: base},
		{ID: "b", Status: TaskRunning, CreatedAt: base.Add(time.Second), LastProgress: "downloading 50% (5/10 MB, 1 MB/s)"},
		{ID: "d", Status: TaskFailed, CreatedAt: base.Add(3 * time.Second)},
		{ID: "e", Status: TaskPending, CreatedAt: base.Add(4 * time.Second)},
	}

	list := GroupTasks(tasks)
	assert.Equal(t, TaskSummary{Total: 5, Pending: 2, Running: 1, Completed: 1, Failed: 1}, list.Summary)
	require.Len(t, list.Pending, 2)
	assert.Equal(t, "a", list.Pending[0].ID)
	assert.Equal(t, "e", list.Pending[1].ID)
	assert.Equal(t, 50, list.Running[0].Progress.Percentage)
	assert.Equal(t, 100, list.Completed[0].Progress.Percentage)
}

func TestJobKey_Validate(t *testing.T) {
	assert.NoError(t, JobKey{AppID: "1234", VersionID: LatestVersion}.Validate())
	assert.ErrorIs(t, JobKey{AppID: "", VersionID: "1"}.Validate(), ErrInvalidJobKey)
	assert.ErrorIs(t, JobKey{AppID: "../etc", VersionID: "1"}.Validate(), ErrInvalidJobKey)
	assert.ErrorIs(t, JobKey{AppID: "1_2", VersionID: "1"}.Validate(), ErrInvalidJobKey)
}

func TestTask_ExplicitVersionID(t *testing.T) {
	latest := Task{VersionID: LatestVersion}
	assert.Equal(t, "", latest.ExplicitVersionID())

	resolved := Task{VersionID: LatestVersion, ResolvedVersionID: "8800"}
	assert.Equal(t, "8800", resolved.ExplicitVersionID())

	pinned := Task{VersionID: "7700"}
	assert.Equal(t, "7700", pinned.ExplicitVersionID())

	assert.Equal(t, "1234_latest.ipa", ArtifactFileName(JobKey{AppID: "1234", VersionID: LatestVersion}))
}
