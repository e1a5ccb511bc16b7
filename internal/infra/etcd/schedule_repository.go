package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"stashed-tasks/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type scheduleRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewScheduleRepository stores schedule definitions under /stash/schedules/{name}.
func NewScheduleRepository(client *clientv3.Client, logger *slog.Logger) domain.ScheduleRepository {
	return &scheduleRepository{
		client: client,
		logger: logger.With("component", "etcd-schedule-repo"),
		tracer: otel.Tracer("stashed-tasks-etcd-schedule-repo"),
	}
}

func (r *scheduleRepository) Save(ctx context.Context, schedule *domain.Schedule) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveSchedule")
	defer span.End()

	scheduleJSON, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule to JSON: %w", err)
	}

	key := scheduleKey(schedule.Name)
	span.SetAttributes(
		attribute.String("schedule.name", schedule.Name),
		attribute.String("etcd.key", key),
	)

	if _, err := r.client.Put(ctx, key, string(scheduleJSON)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put schedule to etcd")
		return fmt.Errorf("failed to save schedule %s to etcd: %w", schedule.Name, err)
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, name string) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.DeleteSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.name", name))

	if _, err := r.client.Delete(ctx, scheduleKey(name)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete schedule from etcd")
		return fmt.Errorf("failed to delete schedule %s from etcd: %w", name, err)
	}
	return nil
}

func (r *scheduleRepository) Get(ctx context.Context, name string) (*domain.Schedule, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.name", name))

	resp, err := r.client.Get(ctx, scheduleKey(name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get schedule from etcd")
		return nil, fmt.Errorf("failed to get schedule %s from etcd: %w", name, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrScheduleNotFound
	}

	var schedule domain.Schedule
	if err := json.Unmarshal(resp.Kvs[0].Value, &schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule %s from JSON: %w", name, err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) List(ctx context.Context) ([]*domain.Schedule, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListSchedules")
	defer span.End()

	resp, err := r.client.Get(ctx, ScheduleDir, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list schedules from etcd")
		return nil, fmt.Errorf("failed to list schedules from etcd: %w", err)
	}
	span.SetAttributes(attribute.Int("etcd.kv_count", len(resp.Kvs)))

	schedules := make([]*domain.Schedule, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var schedule domain.Schedule
		if err := json.Unmarshal(kv.Value, &schedule); err != nil {
			r.logger.Warn("failed to unmarshal schedule from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		schedules = append(schedules, &schedule)
	}
	return schedules, nil
}

func scheduleKey(name string) string {
	return ScheduleDir + url.PathEscape(name)
}
