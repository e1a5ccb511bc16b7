package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/schedule"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TaskValidator reports whether a task name is registered.
type TaskValidator interface {
	Validate(name string) error
}

// ScheduleService keeps stored schedule definitions and provider schedules in step.
type ScheduleService struct {
	repo        domain.ScheduleRepository
	provider    domain.ScheduleProvider
	tasks       TaskValidator
	callbackURL func() string
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewScheduleService(repo domain.ScheduleRepository, provider domain.ScheduleProvider, tasks TaskValidator, callbackURL func() string, logger *slog.Logger) *ScheduleService {
	return &ScheduleService{
		repo:        repo,
		provider:    provider,
		tasks:       tasks,
		callbackURL: callbackURL,
		logger:      logger.With("component", "schedule-service"),
		tracer:      otel.Tracer("stashed-tasks-usecase"),
		now:         time.Now,
	}
}

// Save validates the schedule, creates or replaces its provider schedule and stores it.
func (s *ScheduleService) Save(ctx context.Context, sched *domain.Schedule) error {
	ctx, span := s.tracer.Start(ctx, "service.SaveSchedule")
	defer span.End()

	if err := sched.Validate(); err != nil {
		return err
	}
	if err := s.tasks.Validate(sched.TaskName); err != nil {
		return err
	}
	expr, err := schedule.ParseCron(sched.Cron)
	if err != nil {
		return err
	}
	sched.Cron = expr

	now := s.now()
	existing, err := s.repo.Get(ctx, sched.Name)
	switch {
	case err == nil:
		sched.ID = existing.ID
		sched.CreatedAt = existing.CreatedAt
		if sched.ProviderID == "" {
			sched.ProviderID = existing.ProviderID
		}
	case errors.Is(err, domain.ErrScheduleNotFound):
		sched.ID = uuid.New().String()
		sched.CreatedAt = now
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load schedule")
		return err
	}
	sched.UpdatedAt = now
	span.SetAttributes(attribute.String("schedule.id", sched.ID), attribute.String("schedule.name", sched.Name))

	if err := s.push(ctx, sched); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create provider schedule")
		return err
	}

	if err := s.repo.Save(ctx, sched); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save schedule to repository")
		return err
	}
	s.logger.Info("schedule saved", "schedule_name", sched.Name, "task_name", sched.TaskName, "cron", sched.Cron, "provider_id", sched.ProviderID)
	return nil
}

// push creates the provider schedule, reusing ProviderID so the provider overwrites it.
func (s *ScheduleService) push(ctx context.Context, sched *domain.Schedule) error {
	body, err := json.Marshal(sched.Payload())
	if err != nil {
		return fmt.Errorf("failed to encode schedule %s payload: %w", sched.Name, err)
	}

	id, err := s.provider.CreateSchedule(ctx, &domain.CreateScheduleRequest{
		Destination: s.callbackURL(),
		Cron:        sched.Cron,
		Body:        body,
		Retries:     sched.Retries,
		ScheduleID:  sched.ProviderID,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider schedule for %s: %w", sched.Name, err)
	}
	sched.ProviderID = id

	if sched.Paused {
		if err := s.provider.PauseSchedule(ctx, id); err != nil {
			return fmt.Errorf("failed to pause provider schedule for %s: %w", sched.Name, err)
		}
	}
	return nil
}

// Delete removes the provider schedule and the stored definition.
func (s *ScheduleService) Delete(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.name", name))

	sched, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	if sched.ProviderID != "" {
		if err := s.provider.DeleteSchedule(ctx, sched.ProviderID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete provider schedule")
			return fmt.Errorf("failed to delete provider schedule for %s: %w", name, err)
		}
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete schedule from repository")
		return err
	}
	s.logger.Info("schedule deleted", "schedule_name", name)
	return nil
}

func (s *ScheduleService) Get(ctx context.Context, name string) (*domain.Schedule, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.name", name))

	sched, err := s.repo.Get(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrScheduleNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get schedule from repository")
	}
	return sched, err
}

func (s *ScheduleService) List(ctx context.Context) ([]*domain.Schedule, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListSchedules")
	defer span.End()

	schedules, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list schedules from repository")
	}
	return schedules, err
}

func (s *ScheduleService) Pause(ctx context.Context, name string) (*domain.Schedule, error) {
	return s.setPaused(ctx, name, true)
}

func (s *ScheduleService) Resume(ctx context.Context, name string) (*domain.Schedule, error) {
	return s.setPaused(ctx, name, false)
}

func (s *ScheduleService) setPaused(ctx context.Context, name string, paused bool) (*domain.Schedule, error) {
	ctx, span := s.tracer.Start(ctx, "service.SetSchedulePaused")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.name", name), attribute.Bool("schedule.paused", paused))

	sched, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if sched.Paused == paused {
		return sched, nil
	}

	if sched.ProviderID != "" {
		action := s.provider.ResumeSchedule
		if paused {
			action = s.provider.PauseSchedule
		}
		if err := action(ctx, sched.ProviderID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to update provider schedule")
			return nil, fmt.Errorf("failed to update provider schedule for %s: %w", name, err)
		}
	}

	sched.Paused = paused
	sched.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, sched); err != nil {
		return nil, err
	}
	s.logger.Info("schedule paused state changed", "schedule_name", name, "paused", paused)
	return sched, nil
}

// Reconcile re-creates provider schedules that are missing for stored
// definitions and aligns their paused state. It returns how many were repaired.
func (s *ScheduleService) Reconcile(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "service.ReconcileSchedules")
	defer span.End()

	stored, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list stored schedules")
		return 0, err
	}
	remote, err := s.provider.ListSchedules(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list provider schedules")
		return 0, fmt.Errorf("failed to list provider schedules: %w", err)
	}
	byID := make(map[string]*domain.ProviderSchedule, len(remote))
	for _, r := range remote {
		byID[r.ScheduleID] = r
	}

	var (
		repaired int
		errs     []error
	)
	for _, sched := range stored {
		r, ok := byID[sched.ProviderID]
		switch {
		case !ok || sched.ProviderID == "":
			if err := s.push(ctx, sched); err != nil {
				errs = append(errs, err)
				continue
			}
			sched.UpdatedAt = s.now()
			if err := s.repo.Save(ctx, sched); err != nil {
				errs = append(errs, err)
				continue
			}
			s.logger.Warn("re-created missing provider schedule", "schedule_name", sched.Name, "provider_id", sched.ProviderID)
		case r.IsPaused != sched.Paused:
			action := s.provider.ResumeSchedule
			if sched.Paused {
				action = s.provider.PauseSchedule
			}
			if err := action(ctx, sched.ProviderID); err != nil {
				errs = append(errs, fmt.Errorf("failed to align paused state for %s: %w", sched.Name, err))
				continue
			}
			s.logger.Warn("aligned provider schedule paused state", "schedule_name", sched.Name, "paused", sched.Paused)
		default:
			continue
		}
		repaired++
	}

	span.SetAttributes(attribute.Int("schedules.stored", len(stored)), attribute.Int("schedules.repaired", repaired))
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "some schedules could not be reconciled")
		return repaired, err
	}
	return repaired, nil
}
