package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chhz0/polytasks/core"
	"github.com/chhz0/polytasks/export"
	"github.com/chhz0/polytasks/types"
)

type listResponse struct {
	Tasks     []types.Task `json:"tasks"`
	Remaining int          `json:"remaining"`
}

type addRequest struct {
	Text string `json:"text"`
}

type completionRequest struct {
	Completed *bool `json:"completed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	manager *core.Manager
	logger  *slog.Logger
}

func newRouter(m *core.Manager, logger *slog.Logger) *http.ServeMux {
	h := &handlers{manager: m, logger: logger}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /tasks", h.list)
	mux.HandleFunc("POST /tasks", h.add)
	mux.HandleFunc("POST /tasks/reload", h.reload)
	mux.HandleFunc("GET /tasks/export", h.export)
	mux.HandleFunc("PATCH /tasks/{id}", h.setCompletion)
	mux.HandleFunc("DELETE /tasks/{id}", h.remove)

	return mux
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, listResponse{
		Tasks:     h.manager.GetTasks(),
		Remaining: h.manager.RemainingCount(),
	})
}

func (h *handlers) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	task, ok, err := h.manager.AddTask(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("add task failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to save tasks")
		return
	}
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "task text must not be empty")
		return
	}
	h.writeJSON(w, http.StatusCreated, task)
}

func (h *handlers) setCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Completed == nil {
		h.writeError(w, http.StatusBadRequest, `body must be {"completed": bool}`)
		return
	}

	task, ok, err := h.manager.SetTaskCompletion(r.Context(), r.PathValue("id"), *req.Completed)
	if err != nil {
		h.logger.Error("update task failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to save tasks")
		return
	}
	if !ok {
		h.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	h.writeJSON(w, http.StatusOK, task)
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	ok, err := h.manager.RemoveTask(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("remove task failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to save tasks")
		return
	}
	if !ok {
		h.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	tasks := h.manager.ReloadTasks(r.Context())
	h.writeJSON(w, http.StatusOK, listResponse{
		Tasks:     tasks,
		Remaining: export.Remaining(tasks),
	})
}

func (h *handlers) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	data, err := export.Export(h.manager.GetTasks(), format)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	_, _ = w.Write(data)
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("write response failed", "error", err)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
