// Package metrics provides Prometheus metrics for Harbor: task lifecycle,
// queue pressure, event fan-out and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksCreated counts accepted download requests.
var TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "harbor",
	Name:      "tasks_created_total",
	Help:      "Total download tasks created.",
})

// TasksCompleted counts downloads whose process exited 0.
var TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "harbor",
	Name:      "tasks_completed_total",
	Help:      "Total download tasks completed.",
})

// TasksFailed counts failed downloads by error kind.
var TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "harbor",
	Name:      "tasks_failed_total",
	Help:      "Total download tasks failed by kind.",
}, []string{"kind"})

// TasksRunning tracks live download processes.
var TasksRunning = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "harbor",
	Name:      "tasks_running",
	Help:      "Number of download processes currently running.",
})

// TasksQueued tracks tasks waiting for a slot.
var TasksQueued = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "harbor",
	Name:      "tasks_queued",
	Help:      "Number of tasks waiting in the queue.",
})

// QueueWait tracks time from creation to admission.
var QueueWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "harbor",
	Name:      "task_queue_wait_seconds",
	Help:      "Time from task creation to process start.",
	Buckets:   []float64{0.01, 0.1, 1, 5, 15, 60, 300, 900},
})

// TaskDuration tracks process run time until exit.
var TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "harbor",
	Name:      "task_duration_seconds",
	Help:      "Download process run time.",
	Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
})

// ─── Events ─────────────────────────────────────────────────────────────────

// EventsPublished counts deliveries by event type.
var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "harbor",
	Name:      "events_published_total",
	Help:      "Total events delivered to subscribers by type.",
}, []string{"type"})

// EventsDropped counts deliveries skipped because a subscriber was full.
var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "harbor",
	Name:      "events_dropped_total",
	Help:      "Events dropped for slow subscribers.",
})

// EventSubscribers tracks connected subscribers across all channels.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "harbor",
	Name:      "event_subscribers",
	Help:      "Number of connected event subscribers.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "harbor",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
