package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ─── Progress Lines ─────────────────────────────────────────────────────────
// The downloader redraws a bar like:
//
//	downloading  42% |████████      | (10/24 MB, 1.2 MB/s)

const (
	progressMarker = "downloading"
	waitingText    = "waiting..."
	completedText  = "completed"
)

var (
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	clauseRe  = regexp.MustCompile(`\(([^,()]+),\s*([^()]+)\)`)
)

// Progress is the parsed view of the last progress line.
type Progress struct {
	Percentage    int    `json:"percentage"`
	SizeProgress  string `json:"sizeProgress"`
	DownloadSpeed string `json:"downloadSpeed"`
}

// IsProgressLine reports whether an output line is a progress update.
func IsProgressLine(line string) bool {
	return strings.Contains(strings.ToLower(line), progressMarker) && percentRe.MatchString(line)
}

// ParseProgress maps a raw progress line to percentage, size and speed.
// A completed task is always 100%; an empty line means nothing arrived yet.
func ParseProgress(text string, status TaskStatus) Progress {
	if status == TaskCompleted {
		return Progress{Percentage: 100, SizeProgress: completedText}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Progress{SizeProgress: waitingText}
	}

	p := Progress{SizeProgress: waitingText}
	if m := percentRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Percentage = clampPercent(int(f))
		}
	}
	if all := clauseRe.FindAllStringSubmatch(text, -1); len(all) > 0 {
		last := all[len(all)-1]
		p.SizeProgress = strings.TrimSpace(last[1])
		p.DownloadSpeed = strings.TrimSpace(last[2])
	}
	return p
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ─── Task List Projection ───────────────────────────────────────────────────

// TaskView is a task plus its parsed progress.
type TaskView struct {
	Task
	Progress Progress `json:"progress"`
}

// TaskSummary provides aggregate counts per status.
type TaskSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// TaskList groups tasks by status, oldest first within each group.
type TaskList struct {
	Pending   []TaskView  `json:"pending"`
	Running   []TaskView  `json:"running"`
	Completed []TaskView  `json:"completed"`
	Failed    []TaskView  `json:"failed"`
	Summary   TaskSummary `json:"summary"`
}

// ProgressSnapshot is the in-flight view served to polling clients.
type ProgressSnapshot struct {
	TaskID    string     `json:"taskId"`
	AppID     string     `json:"appId"`
	VersionID string     `json:"versionId"`
	FileName  string     `json:"fileName"`
	Status    TaskStatus `json:"status"`
	Progress  Progress   `json:"progress"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// View attaches parsed progress to a task.
func View(t Task) TaskView {
	return TaskView{Task: t, Progress: ParseProgress(t.LastProgress, t.Status)}
}

// Snapshot builds the progress snapshot of a task.
func Snapshot(t Task) ProgressSnapshot {
	return ProgressSnapshot{
		TaskID:    t.ID,
		AppID:     t.AppID,
		VersionID: t.VersionID,
		FileName:  t.ArtifactFileName,
		Status:    t.Status,
		Progress:  ParseProgress(t.LastProgress, t.Status),
		UpdatedAt: t.UpdatedAt,
	}
}

// GroupTasks buckets tasks by status and counts them.
func GroupTasks(tasks []Task) TaskList {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	list := TaskList{
		Pending:   []TaskView{},
		Running:   []TaskView{},
		Completed: []TaskView{},
		Failed:    []TaskView{},
	}
	for _, t := range sorted {
		v := View(t)
		switch t.Status {
		case TaskPending:
			list.Pending = append(list.Pending, v)
		case TaskRunning:
			list.Running = append(list.Running, v)
		case TaskCompleted:
			list.Completed = append(list.Completed, v)
		case TaskFailed:
			list.Failed = append(list.Failed, v)
		default:
			continue
		}
		list.Summary.Total++
	}
	list.Summary.Pending = len(list.Pending)
	list.Summary.Running = len(list.Running)
	list.Summary.Completed = len(list.Completed)
	list.Summary.Failed = len(list.Failed)
	return list
}
