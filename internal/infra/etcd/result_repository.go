package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"stashed-tasks/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type resultRepository struct {
	client *clientv3.Client
	ttl    time.Duration
	logger *slog.Logger
	tracer trace.Tracer
}

// NewResultRepository stores task results under /stash/results/{task}/{id}.
// A positive ttl attaches every result to a lease so old history expires on its own.
func NewResultRepository(client *clientv3.Client, ttl time.Duration, logger *slog.Logger) domain.ResultRepository {
	return &resultRepository{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "etcd-result-repo"),
		tracer: otel.Tracer("stashed-tasks-etcd-result-repo"),
	}
}

func (r *resultRepository) Save(ctx context.Context, result *domain.TaskResult) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveResult")
	defer span.End()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal task result")
		return fmt.Errorf("failed to marshal task result %s to JSON: %w", result.ID, err)
	}

	key := resultKey(result.TaskName, result.ID)
	span.SetAttributes(
		attribute.String("result.id", result.ID),
		attribute.String("task.name", result.TaskName),
		attribute.String("etcd.key", key),
	)

	var opts []clientv3.OpOption
	if r.ttl > 0 {
		lease, err := r.client.Grant(ctx, int64(r.ttl.Seconds()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to grant result lease")
			return fmt.Errorf("failed to grant lease for task result %s: %w", result.ID, err)
		}
		opts = append(opts, clientv3.WithLease(lease.ID))
	}

	if _, err := r.client.Put(ctx, key, string(resultJSON), opts...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put task result to etcd")
		return fmt.Errorf("failed to save task result %s to etcd: %w", result.ID, err)
	}
	return nil
}

func (r *resultRepository) Get(ctx context.Context, taskName, resultID string) (*domain.TaskResult, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetResult")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.name", taskName),
		attribute.String("result.id", resultID),
	)

	key := resultKey(taskName, resultID)
	resp, err := r.client.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task result from etcd")
		return nil, fmt.Errorf("failed to get task result %s/%s from etcd: %w", taskName, resultID, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrResultNotFound
	}

	var result domain.TaskResult
	if err := json.Unmarshal(resp.Kvs[0].Value, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal task result")
		return nil, fmt.Errorf("failed to unmarshal task result %s/%s from JSON: %w", taskName, resultID, err)
	}
	return &result, nil
}

// ListByTaskName returns results newest first.
func (r *resultRepository) ListByTaskName(ctx context.Context, taskName string, page, pageSize int) ([]*domain.TaskResult, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListResults")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.name", taskName),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	prefix := resultPrefix(taskName)
	resp, err := r.client.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortDescend),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list task results from etcd")
		return nil, fmt.Errorf("failed to list task results for %s from etcd: %w", taskName, err)
	}

	// etcd limits count keys, not offsets, so pagination happens here.
	start, end := pageBounds(page, pageSize, len(resp.Kvs))
	results := make([]*domain.TaskResult, 0, end-start)
	for _, kv := range resp.Kvs[start:end] {
		var result domain.TaskResult
		if err := json.Unmarshal(kv.Value, &result); err != nil {
			r.logger.Warn("failed to unmarshal task result from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		results = append(results, &result)
	}
	span.SetAttributes(attribute.Int("results_returned", len(results)))
	return results, nil
}

// Task names may contain "/" (Go symbols), so each segment is escaped to
// keep one task's prefix from matching another's.
func resultPrefix(taskName string) string {
	return ResultDir + url.PathEscape(taskName) + "/"
}

func resultKey(taskName, resultID string) string {
	return resultPrefix(taskName) + url.PathEscape(resultID)
}

func pageBounds(page, pageSize, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return 0, 0
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
