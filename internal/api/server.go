// Package api provides the HTTP server for Harbor: task creation and
// queries, artifact management, the live event stream and settings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/app/taskmgr"
	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/health"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/events"
)

// Version is reported by /api/version. Overridden at build time.
var Version = "0.1.0"

// TaskService is the orchestration surface the handlers drive.
type TaskService interface {
	CreateTask(ctx context.Context, req taskmgr.CreateRequest) (domain.Task, error)
	Get(id string) (domain.Task, error)
	List() domain.TaskList
	Progress() []domain.ProgressSnapshot
	Stats() taskmgr.Stats
	DeleteTask(id string) error
	DeleteByArtifactName(name string) (int, error)
	ClearAll() error
}

// SettingsStore persists operator settings.
type SettingsStore interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// HealthReporter exposes the latest health check results.
type HealthReporter interface {
	Statuses() []health.Status
	IsHealthy() bool
}

// Deps are the services behind the routes.
type Deps struct {
	Tasks       TaskService
	Artifacts   *artifact.Store
	Extractor   domain.MetadataExtractor
	Hub         *events.Hub
	Settings    SettingsStore
	Health      HealthReporter
	CORSOrigins []string
}

// Server is the Harbor HTTP API server.
type Server struct {
	deps           Deps
	log            *zap.Logger
	metricsEnabled bool
	keepAlive      time.Duration
}

// NewServer creates a new API server.
func NewServer(deps Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{deps: deps, log: log.Named("api"), keepAlive: 30 * time.Second}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.deps.CORSOrigins))

	// Long-lived stream; no request timeout.
	r.Get("/api/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(time.Minute))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
			})
		})

		r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"version": Version,
			})
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleListTasks)
			r.Delete("/", s.handleClearAll)
			r.Get("/progress", s.handleProgress)
			r.Get("/stats", s.handleStats)
			r.Get("/{id}", s.handleGetTask)
			r.Delete("/{id}", s.handleDeleteTask)
		})

		r.Route("/api/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Get("/{name}/metadata", s.handleFileMetadata)
			r.Delete("/{name}", s.handleDeleteFile)
		})

		if s.deps.Settings != nil {
			r.Get("/api/settings/passphrase", s.handleGetPassphrase)
			r.Put("/api/settings/passphrase", s.handlePutPassphrase)
		}

		if s.deps.Health != nil {
			r.Get("/api/health/checks", s.handleHealthChecks)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealthChecks(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	healthy := s.deps.Health.IsHealthy()
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"healthy": healthy,
		"checks":  s.deps.Health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a service error to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, domain.ErrMetadataNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidJobKey),
		errors.Is(err, domain.ErrMissingBundle),
		errors.Is(err, domain.ErrInvalidArtifactName):
		return http.StatusBadRequest
	case errors.Is(err, taskmgr.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers. An empty list or "*" allows any origin.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
