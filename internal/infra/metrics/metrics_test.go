package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestTaskMetrics(t *testing.T) {
	TasksCreated.Inc()
	TasksCompleted.Inc()
	TasksFailed.WithLabelValues("TOKEN_EXPIRED").Inc()
	TasksRunning.Set(2)
	TasksQueued.Set(1)
	QueueWait.Observe(0.5)
	TaskDuration.Observe(42)

	names := gatheredNames(t)
	expected := []string{
		"harbor_tasks_created_total",
		"harbor_tasks_completed_total",
		"harbor_tasks_failed_total",
		"harbor_tasks_running",
		"harbor_tasks_queued",
		"harbor_task_queue_wait_seconds",
		"harbor_task_duration_seconds",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestEventMetrics(t *testing.T) {
	EventsPublished.WithLabelValues("task-completed").Inc()
	EventsDropped.Inc()
	EventSubscribers.Set(3)

	names := gatheredNames(t)
	for _, name := range []string{
		"harbor_events_published_total",
		"harbor_events_dropped_total",
		"harbor_event_subscribers",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestHealthMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("settings_db").Set(1)
	if !gatheredNames(t)["harbor_health_check_status"] {
		t.Error("harbor_health_check_status not found")
	}
}
