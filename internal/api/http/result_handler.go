package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/task"
	"stashed-tasks/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// ResultHandler serves task discovery and the execution history.
type ResultHandler struct {
	service  *usecase.ResultService
	registry *task.Registry
	logger   *slog.Logger
}

func NewResultHandler(service *usecase.ResultService, registry *task.Registry, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		service:  service,
		registry: registry,
		logger:   logger.With("component", "result-handler"),
	}
}

func (h *ResultHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", h.handleTasks)
	r.Get("/results/{task_name}", h.handleHistory)
	r.Get("/results/{task_name}/{result_id}", h.handleGet)
}

func (h *ResultHandler) handleTasks(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, TasksResponse{
		AvailableTasks: h.registry.Names(),
		Tasks:          h.registry.Discover(),
	})
}

// handleHistory serves GET /results/{task_name}?page=1&page_size=20.
func (h *ResultHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	taskName := chi.URLParam(r, "task_name")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	results, err := h.service.ListHistory(r.Context(), taskName, page, pageSize)
	if err != nil {
		h.logger.Error("error listing task results", "task_name", taskName, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, results)
}

func (h *ResultHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	taskName, resultID := chi.URLParam(r, "task_name"), chi.URLParam(r, "result_id")
	result, err := h.service.Get(r.Context(), taskName, resultID)
	if err != nil {
		if errors.Is(err, domain.ErrResultNotFound) {
			respondError(w, h.logger, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("error getting task result", "task_name", taskName, "result_id", resultID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}
