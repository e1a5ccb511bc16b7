package usecase

import (
	"context"
	"log/slog"

	"stashed-tasks/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ResultService reads the history of webhook-triggered task executions.
type ResultService struct {
	repo   domain.ResultRepository
	logger *slog.Logger
	tracer trace.Tracer
}

func NewResultService(repo domain.ResultRepository, logger *slog.Logger) *ResultService {
	return &ResultService{
		repo:   repo,
		logger: logger.With("component", "result-service"),
		tracer: otel.Tracer("stashed-tasks-usecase"),
	}
}

// ListHistory lists results of a task, newest first. Out-of-range paging
// arguments fall back to the first page and the default size.
func (s *ResultService) ListHistory(ctx context.Context, taskName string, page, pageSize int) ([]*domain.TaskResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	ctx, span := s.tracer.Start(ctx, "service.ListHistory")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.name", taskName),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	results, err := s.repo.ListByTaskName(ctx, taskName, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list task results")
	}
	return results, err
}

func (s *ResultService) Get(ctx context.Context, taskName, resultID string) (*domain.TaskResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetResult")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", taskName), attribute.String("result.id", resultID))

	return s.repo.Get(ctx, taskName, resultID)
}
