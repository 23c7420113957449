// Package handlers implements the command server's HTTP handlers, one
// struct method per RPC the daemon's external control interface exposes:
// small handler functions that decode a request, call into the owning
// manager, and write a JSON response or an apierrors.APIError.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/tumi8/insalata-go/internal/environment"
	"github.com/tumi8/insalata-go/internal/server/apierrors"
	"github.com/tumi8/insalata-go/pkg/logger"
)

// maxUploadBytes bounds a single goal-document upload.
const maxUploadBytes = 32 << 20

// Handlers backs every command-server route with the environment manager
// it dispatches into.
type Handlers struct {
	mgr *environment.Manager
	log *slog.Logger
}

// New builds a Handlers bound to mgr.
func New(mgr *environment.Manager, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{mgr: mgr, log: log}
}

func (h *Handlers) environment(w http.ResponseWriter, r *http.Request) (*environment.Environment, bool) {
	name := mux.Vars(r)["env"]
	env, ok := h.mgr.Get(name)
	if !ok {
		apierrors.WriteError(w, apierrors.NotFoundError(fmt.Sprintf("environment %q", name)))
		return nil, false
	}
	return env, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// GetEnvironments implements getEnvironments(): list loaded environment names.
func (h *Handlers) GetEnvironments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"environments": h.mgr.Environments()})
}

// GetCommands implements getCommands(): list the RPC command table.
func (h *Handlers) GetCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"commands": h.mgr.Commands()})
}

// UploadConfiguration implements uploadConfiguration(env, name, xml).
func (h *Handlers) UploadConfiguration(w http.ResponseWriter, r *http.Request) {
	env, ok := h.environment(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		apierrors.WriteError(w, apierrors.ValidationError("missing required query parameter \"name\""))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		apierrors.WriteError(w, apierrors.InternalError("read request body: "+err.Error()))
		return
	}
	if len(data) > maxUploadBytes {
		apierrors.WriteError(w, apierrors.ValidationError("goal document exceeds maximum upload size"))
		return
	}

	if err := env.UploadConfiguration(name, data); err != nil {
		apierrors.WriteError(w, apierrors.ValidationError(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"name": name})
}

// ListFiles implements listFiles(env).
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	env, ok := h.environment(w, r)
	if !ok {
		return
	}
	files, err := env.ListFiles()
	if err != nil {
		apierrors.WriteError(w, apierrors.InternalError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// GetFile implements getFile(env, name).
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	env, ok := h.environment(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	data, err := env.GetFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			apierrors.WriteError(w, apierrors.NotFoundError(fmt.Sprintf("goal document %q", name)))
			return
		}
		apierrors.WriteError(w, apierrors.InternalError(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ApplyConfiguration implements applyConfiguration(env, name): diff, plan
// and execute against the named goal document.
func (h *Handlers) ApplyConfiguration(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	if err := h.mgr.ApplyConfiguration(r.Context(), vars["env"], name); err != nil {
		logger.FromContext(r.Context(), h.log).Error("apply configuration failed", "goal", name, "error", err)
		apierrors.WriteError(w, apierrors.InternalError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "status": "applied"})
}

// ExportEnvironmentToXml implements exportEnvironmentToXml(env): serialize
// the current graph as a goal document.
func (h *Handlers) ExportEnvironmentToXml(w http.ResponseWriter, r *http.Request) {
	env, ok := h.environment(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if err := env.ExportEnvironmentToXml(w); err != nil {
		logger.FromContext(r.Context(), h.log).Error("export environment to xml failed", "error", err)
	}
}

// GetSetupProgress implements getSetupProgress(env): report the last
// deployment's progress.
func (h *Handlers) GetSetupProgress(w http.ResponseWriter, r *http.Request) {
	env, ok := h.environment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": env.Progress()})
}
