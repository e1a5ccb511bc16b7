package domain

import "context"

// LeaderElectionManager elects the single replica that reconciles schedules.
type LeaderElectionManager interface {
	// Campaign blocks until leadership is acquired; the returned channel is
	// closed when it is lost.
	Campaign(ctx context.Context) (<-chan struct{}, error)
	Resign(ctx context.Context) error
	IsLeader() bool
}
