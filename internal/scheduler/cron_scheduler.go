// Package scheduler runs in-process periodic jobs such as the schedule
// reconciler. Provider-side task schedules are not executed here.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"stashed-tasks/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type cronScheduler struct {
	cron   *cron.Cron
	mu     sync.Mutex
	jobs   map[string]cron.EntryID
	logger *slog.Logger
	tracer trace.Tracer

	// base is the context jobs run under; it is cancelled when Start returns.
	base context.Context
}

// NewCronScheduler creates a scheduler using standard five-field cron specs.
func NewCronScheduler(logger *slog.Logger) domain.Scheduler {
	return &cronScheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:   make(map[string]cron.EntryID),
		logger: logger.With("component", "cron-scheduler"),
		tracer: otel.Tracer("stashed-tasks-scheduler"),
		base:   context.Background(),
	}
}

// Start runs the scheduler until ctx is done, then waits for running jobs.
func (s *cronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.logger.Info("cron scheduler started")
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopping...")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("cron scheduler stopped")
	return ctx.Err()
}

// AddJob registers run under name, replacing an earlier job with the same name.
func (s *cronScheduler) AddJob(name, spec string, run func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
	}

	wrapper := &cronJobWrapper{
		name:   name,
		run:    run,
		ctx:    s.context,
		logger: s.logger.With("job_name", name),
		tracer: s.tracer,
	}
	entryID, err := s.cron.AddJob(spec, wrapper)
	if err != nil {
		s.logger.Error("failed to add job to cron", "job_name", name, "error", err)
		return err
	}

	s.jobs[name] = entryID
	s.logger.Info("added job to scheduler", "job_name", name, "schedule", spec)
	return nil
}

func (s *cronScheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("removed job from scheduler", "job_name", name)
	}
	return nil
}

func (s *cronScheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

type cronJobWrapper struct {
	name   string
	run    func(ctx context.Context)
	ctx    func() context.Context
	logger *slog.Logger
	tracer trace.Tracer
}

// Run is called by the cron library on every tick.
func (w *cronJobWrapper) Run() {
	ctx := w.ctx()
	if ctx.Err() != nil {
		return
	}
	ctx, span := w.tracer.Start(ctx, "scheduler.Run",
		trace.WithAttributes(attribute.String("job.name", w.name)))
	defer span.End()

	w.logger.Debug("running scheduled job")
	w.run(ctx)
}
