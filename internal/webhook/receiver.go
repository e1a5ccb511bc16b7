// Package webhook receives queue callbacks: it verifies the provider
// signature, decodes the task payload and runs the registered task.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/metrics"
	"stashed-tasks/internal/task"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request is one inbound callback.
type Request struct {
	Signature string
	Body      []byte
	MessageID string
	Retried   int
}

// Outcome is the result of a completed callback.
type Outcome struct {
	TaskName string          `json:"task_name"`
	Result   json.RawMessage `json:"result"`
	ResultID string          `json:"result_id,omitempty"`
}

// Receiver runs the verify, parse, resolve and execute steps for one callback.
// It holds no per-request state; the registry is only read.
type Receiver struct {
	verifier Verifier
	registry *task.Registry
	results  domain.ResultRepository
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewReceiver creates a Receiver. results may be nil to skip result recording.
func NewReceiver(verifier Verifier, registry *task.Registry, results domain.ResultRepository, logger *slog.Logger) *Receiver {
	return &Receiver{
		verifier: verifier,
		registry: registry,
		results:  results,
		logger:   logger.With("component", "webhook-receiver"),
		tracer:   otel.Tracer("stashed-tasks-webhook"),
		now:      time.Now,
	}
}

// Handle processes req. Errors are always *domain.WebhookError.
func (r *Receiver) Handle(ctx context.Context, req *Request) (*Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "webhook.Handle", trace.WithAttributes(
		attribute.String("message.id", req.MessageID),
		attribute.Int("message.retried", req.Retried),
	))
	defer span.End()

	out, werr := r.handle(ctx, req)
	if werr != nil {
		metrics.WebhookRequestsTotal.WithLabelValues(werr.Kind.String()).Inc()
		span.RecordError(werr)
		span.SetStatus(codes.Error, werr.Kind.String()+" error")
		return nil, werr
	}
	metrics.WebhookRequestsTotal.WithLabelValues("success").Inc()
	return out, nil
}

func (r *Receiver) handle(ctx context.Context, req *Request) (*Outcome, *domain.WebhookError) {
	logger := r.logger.With("message_id", req.MessageID)

	if err := r.verifier.Verify(ctx, req.Signature, req.Body); err != nil {
		logger.Warn("rejected callback with invalid signature", "error", err)
		return nil, domain.SignatureError(err)
	}

	payload, err := decodePayload(req.Body)
	if err != nil {
		logger.Warn("rejected callback with invalid payload", "error", err)
		return nil, domain.PayloadError(err)
	}
	logger = logger.With("task_name", payload.TaskName)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("task.name", payload.TaskName))

	t, err := r.registry.Lookup(payload.TaskName)
	if err != nil {
		logger.Error("callback names an unknown task", "error", err)
		return nil, domain.TaskError(payload.TaskName, err)
	}

	record := &domain.TaskResult{
		ID:        uuid.NewString(),
		MessageID: req.MessageID,
		TaskName:  payload.TaskName,
		Args:      payload.Args,
		Kwargs:    payload.Kwargs,
		Retried:   req.Retried,
		StartTime: r.now(),
	}

	result, execErr := r.execute(ctx, t, &task.Arguments{Args: payload.Args, Kwargs: payload.Kwargs})
	record.EndTime = r.now()
	metrics.TaskExecutionDuration.WithLabelValues(payload.TaskName).Observe(record.EndTime.Sub(record.StartTime).Seconds())

	var encoded json.RawMessage
	if execErr == nil {
		encoded, execErr = json.Marshal(result)
		if execErr != nil {
			execErr = fmt.Errorf("task result is not JSON encodable: %w", execErr)
		}
	}

	if execErr != nil {
		record.Status = domain.TaskStatusExecutionError
		record.Error = execErr.Error()
		metrics.TaskExecutionTotal.WithLabelValues(payload.TaskName, "failed").Inc()
		logger.Error("task execution failed", "error", execErr)
	} else {
		record.Status = domain.TaskStatusSuccess
		record.Result = encoded
		metrics.TaskExecutionTotal.WithLabelValues(payload.TaskName, "success").Inc()
		logger.Info("task executed", "duration", record.EndTime.Sub(record.StartTime))
	}

	r.saveResult(ctx, logger, record)

	if execErr != nil {
		return nil, domain.TaskError(payload.TaskName, execErr)
	}
	return &Outcome{TaskName: payload.TaskName, Result: encoded, ResultID: record.ID}, nil
}

// execute runs the task, turning a panic into an error.
func (r *Receiver) execute(ctx context.Context, t *task.Task, args *task.Arguments) (result any, err error) {
	ctx, span := r.tracer.Start(ctx, "webhook.Execute", trace.WithAttributes(attribute.String("task.name", t.Name())))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "task execution failed")
		}
	}()

	return t.Run(ctx, args)
}

// saveResult stores the record; a storage failure never changes the response.
func (r *Receiver) saveResult(ctx context.Context, logger *slog.Logger, record *domain.TaskResult) {
	if r.results == nil {
		return
	}
	if err := r.results.Save(ctx, record); err != nil {
		logger.Error("failed to save task result", "result_id", record.ID, "error", err)
	}
}

func decodePayload(body []byte) (*domain.Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if body[0] != '{' {
		return nil, fmt.Errorf("body must be a JSON object")
	}

	var p domain.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
