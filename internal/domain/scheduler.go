package domain

import "context"

// Scheduler runs periodic background work on cron expressions.
type Scheduler interface {
	Start(ctx context.Context) error
	AddJob(name, spec string, run func(ctx context.Context)) error
	RemoveJob(name string) error
}
