package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/schedule"
	"stashed-tasks/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScheduleHandler serves /schedules.
type ScheduleHandler struct {
	service  *usecase.ScheduleService
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewScheduleHandler(service *usecase.ScheduleService, logger *slog.Logger) *ScheduleHandler {
	validate := validator.New()
	_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseCron(fl.Field().String())
		return err == nil
	})

	return &ScheduleHandler{
		service:  service,
		logger:   logger.With("component", "schedule-handler"),
		validate: validate,
		tracer:   otel.Tracer("stashed-tasks-api"),
	}
}

func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleSave)
		r.Get("/{name}", h.handleGet)
		r.Delete("/{name}", h.handleDelete)
		r.Post("/{name}/pause", h.handlePause)
		r.Post("/{name}/resume", h.handleResume)
	})
}

func (h *ScheduleHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.SaveSchedule")
	defer span.End()

	var req SaveScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		respondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		var details []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("Field '%s' failed on the '%s' tag.", fe.Field(), fe.Tag()))
			}
		}
		respondError(w, h.logger, http.StatusBadRequest, "Validation failed", details...)
		return
	}

	sched := req.ToDomainSchedule()
	span.SetAttributes(attribute.String("schedule.name", sched.Name), attribute.String("task.name", sched.TaskName))

	if err := h.service.Save(ctx, sched); err != nil {
		span.SetStatus(codes.Error, "Failed to save schedule")
		span.RecordError(err)
		h.respondServiceError(w, "error saving schedule", sched.Name, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, sched)
}

func (h *ScheduleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.List(r.Context())
	if err != nil {
		h.respondServiceError(w, "error listing schedules", "", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, schedules)
}

func (h *ScheduleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sched, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, "error getting schedule", name, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, sched)
}

func (h *ScheduleHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.DeleteSchedule")
	defer span.End()
	name := chi.URLParam(r, "name")
	span.SetAttributes(attribute.String("schedule.name", name))

	if err := h.service.Delete(ctx, name); err != nil {
		span.SetStatus(codes.Error, "Failed to delete schedule")
		span.RecordError(err)
		h.respondServiceError(w, "error deleting schedule", name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sched, err := h.service.Pause(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, "error pausing schedule", name, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, sched)
}

func (h *ScheduleHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sched, err := h.service.Resume(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, "error resuming schedule", name, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, sched)
}

func (h *ScheduleHandler) respondServiceError(w http.ResponseWriter, msg, name string, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		respondError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, schedule.ErrInvalidCron):
		respondError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(msg, "schedule_name", name, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}
