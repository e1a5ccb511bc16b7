package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/metrics"
	"stashed-tasks/internal/schedule"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoPublisher is returned when a task is published from an App built without a publisher.
var ErrNoPublisher = errors.New("no publisher configured")

// Module registers a group of tasks on an App.
type Module func(app *App) error

// App binds tasks to a registry, a publisher and the callback URL.
type App struct {
	registry    *Registry
	publisher   domain.Publisher
	callbackURL func() string
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewApp creates an App. publisher may be nil for processes that only
// execute tasks; callbackURL is evaluated on every publish.
func NewApp(registry *Registry, publisher domain.Publisher, callbackURL func() string, logger *slog.Logger) *App {
	return &App{
		registry:    registry,
		publisher:   publisher,
		callbackURL: callbackURL,
		logger:      logger.With("component", "task-app"),
		tracer:      otel.Tracer("stashed-tasks-client"),
	}
}

// Registry returns the registry tasks are registered in.
func (a *App) Registry() *Registry { return a.registry }

// Task wraps fn and registers it.
func (a *App) Task(fn Handler, opts ...Option) (*Task, error) {
	t := newTask(a, fn, opts...)
	if err := a.registry.Register(t); err != nil {
		return nil, err
	}
	a.logger.Debug("task registered", "task_name", t.Name(), "target", t.descriptor.Target)
	return t, nil
}

// MustTask is like Task but panics on error. It is meant for package-level task variables.
func (a *App) MustTask(fn Handler, opts ...Option) *Task {
	t, err := a.Task(fn, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Install runs every module in order and stops at the first failure.
func (a *App) Install(modules ...Module) error {
	for i, m := range modules {
		if err := m(a); err != nil {
			return fmt.Errorf("failed to install task module %d: %w", i, err)
		}
	}
	a.logger.Info("task modules installed", "modules", len(modules), "tasks", len(a.registry.Names()))
	return nil
}

func (a *App) publish(ctx context.Context, t *Task, inv *domain.Invocation) (*AsyncResult, error) {
	ctx, span := a.tracer.Start(ctx, "task.Publish", trace.WithAttributes(
		attribute.String("task.name", inv.TaskName),
		attribute.Int64("task.delay_ms", inv.Delay.Milliseconds()),
	))
	defer span.End()

	if a.publisher == nil {
		return nil, ErrNoPublisher
	}

	payload, err := domain.NewPayload(inv)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode payload")
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal payload")
		return nil, fmt.Errorf("failed to marshal payload of task %s: %w", inv.TaskName, err)
	}

	req := &domain.PublishRequest{
		Destination:  a.callbackURL(),
		Body:         body,
		Deduplicated: inv.Deduplicated,
		Retries:      t.retries,
	}
	if inv.Delay > 0 {
		req.Delay = schedule.FormatDelay(inv.Delay)
	}

	resp, err := a.publisher.PublishJSON(ctx, req)
	if err != nil {
		metrics.TaskPublishTotal.WithLabelValues(inv.TaskName, "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		a.logger.Error("failed to publish task", "task_name", inv.TaskName, "error", err)
		return nil, fmt.Errorf("failed to publish task %s: %w", inv.TaskName, err)
	}

	metrics.TaskPublishTotal.WithLabelValues(inv.TaskName, "success").Inc()
	span.SetAttributes(attribute.String("message.id", resp.MessageID))
	a.logger.Info("task published",
		"task_name", inv.TaskName,
		"message_id", resp.MessageID,
		"delay", req.Delay,
		"destination", req.Destination)

	return &AsyncResult{TaskID: resp.MessageID, Deduplicated: resp.Deduplicated}, nil
}
