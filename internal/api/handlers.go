package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/app/taskmgr"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/sqlite"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskmgr.CreateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	task, err := s.deps.Tasks.CreateTask(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tasks.List())
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tasks.Progress())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tasks.Stats())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.deps.Tasks.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Tasks.DeleteTask(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Tasks.ClearAll(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// ─── Files ──────────────────────────────────────────────────────────────────

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.deps.Artifacts.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if files == nil {
		files = []artifact.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.deps.Extractor.Extract(chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := s.deps.Tasks.DeleteByArtifactName(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":      name,
		"deletedTasks": n,
	})
}

// ─── Settings ───────────────────────────────────────────────────────────────

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

func (s *Server) handleGetPassphrase(w http.ResponseWriter, r *http.Request) {
	_, ok, err := s.deps.Settings.GetSetting(sqlite.KeyKeychainPassphrase)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"set": ok})
}

// handlePutPassphrase stores the override; an empty value removes it.
func (s *Server) handlePutPassphrase(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	var err error
	if req.Passphrase == "" {
		err = s.deps.Settings.DeleteSetting(sqlite.KeyKeychainPassphrase)
	} else {
		err = s.deps.Settings.SetSetting(sqlite.KeyKeychainPassphrase, req.Passphrase)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info("keychain passphrase updated", zap.Bool("set", req.Passphrase != ""))
	writeJSON(w, http.StatusOK, map[string]bool{"set": req.Passphrase != ""})
}
