package usecase

import (
	"context"
	"log/slog"
	"time"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/metrics"
)

const syncJobName = "schedule-sync"

// Reconciler repairs provider schedules.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// ScheduleSyncService runs the reconciler on a cron spec while this replica
// holds leadership. Without a leader manager it always runs.
type ScheduleSyncService struct {
	leaderManager domain.LeaderElectionManager
	newScheduler  func() domain.Scheduler
	reconciler    Reconciler
	spec          string
	nodeID        string
	retryDelay    time.Duration
	logger        *slog.Logger
}

func NewScheduleSyncService(leaderManager domain.LeaderElectionManager, newScheduler func() domain.Scheduler, reconciler Reconciler, spec, nodeID string, logger *slog.Logger) *ScheduleSyncService {
	return &ScheduleSyncService{
		leaderManager: leaderManager,
		newScheduler:  newScheduler,
		reconciler:    reconciler,
		spec:          spec,
		nodeID:        nodeID,
		retryDelay:    5 * time.Second,
		logger:        logger.With("component", "schedule-sync", "node_id", nodeID),
	}
}

// Start blocks until ctx is cancelled.
func (s *ScheduleSyncService) Start(ctx context.Context) error {
	s.logger.Info("schedule sync service starting")

	if s.leaderManager == nil {
		return s.lead(ctx, nil)
	}

	leaderGauge := metrics.IsLeader.WithLabelValues(s.nodeID)
	leaderGauge.Set(0)
	for {
		if ctx.Err() != nil {
			s.logger.Info("schedule sync service shutting down")
			return ctx.Err()
		}

		s.logger.Info("campaigning for leadership")
		lost, err := s.leaderManager.Campaign(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("leadership campaign failed, retrying", "error", err, "retry_in", s.retryDelay)
			select {
			case <-time.After(s.retryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		leaderGauge.Set(1)
		err = s.lead(ctx, lost)
		leaderGauge.Set(0)

		resignCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if rerr := s.leaderManager.Resign(resignCtx); rerr != nil {
			s.logger.Warn("failed to resign leadership", "error", rerr)
		}
		cancel()

		if ctx.Err() != nil {
			return err
		}
		s.logger.Warn("leadership lost")
	}
}

// lead reconciles once, then on every tick until ctx is done or lost is closed.
func (s *ScheduleSyncService) lead(ctx context.Context, lost <-chan struct{}) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.SyncOnce(runCtx)

	sched := s.newScheduler()
	if err := sched.AddJob(syncJobName, s.spec, s.SyncOnce); err != nil {
		s.logger.Error("failed to schedule reconciler", "spec", s.spec, "error", err)
		return err
	}

	done := make(chan error, 1)
	go func() { done <- sched.Start(runCtx) }()

	select {
	case <-lost:
		cancel()
		<-done
		return nil
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}
}

// SyncOnce runs a single reconciliation and records the outcome.
func (s *ScheduleSyncService) SyncOnce(ctx context.Context) {
	repaired, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		metrics.ScheduleSyncTotal.WithLabelValues("error").Inc()
		s.logger.Error("schedule reconciliation failed", "repaired", repaired, "error", err)
		return
	}
	metrics.ScheduleSyncTotal.WithLabelValues("ok").Inc()
	if repaired > 0 {
		s.logger.Info("schedules reconciled", "repaired", repaired)
	}
}
