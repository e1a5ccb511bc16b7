// Package memory holds process-local repositories used when no etcd
// endpoints are configured. Data does not survive a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"stashed-tasks/internal/domain"
)

// ResultRepository keeps task results per task name, oldest first.
type ResultRepository struct {
	mu      sync.RWMutex
	results map[string][]*domain.TaskResult
	ttl     time.Duration
	now     func() time.Time
}

// NewResultRepository drops results older than ttl on access; zero keeps them forever.
func NewResultRepository(ttl time.Duration) *ResultRepository {
	return &ResultRepository{
		results: make(map[string][]*domain.TaskResult),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *ResultRepository) Save(_ context.Context, result *domain.TaskResult) error {
	stored, err := clone(result)
	if err != nil {
		return fmt.Errorf("failed to copy task result %s: %w", result.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.TaskName] = append(r.expire(result.TaskName), stored)
	return nil
}

func (r *ResultRepository) Get(_ context.Context, taskName, resultID string) (*domain.TaskResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.expire(taskName) {
		if res.ID == resultID {
			return clone(res)
		}
	}
	return nil, domain.ErrResultNotFound
}

// ListByTaskName returns results newest first.
func (r *ResultRepository) ListByTaskName(_ context.Context, taskName string, page, pageSize int) ([]*domain.TaskResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.expire(taskName)
	if page < 1 {
		page = 1
	}
	out := []*domain.TaskResult{}
	if pageSize < 1 {
		return out, nil
	}
	skip := (page - 1) * pageSize
	for i := len(all) - 1 - skip; i >= 0 && len(out) < pageSize; i-- {
		res, err := clone(all[i])
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// expire must be called with mu held.
func (r *ResultRepository) expire(taskName string) []*domain.TaskResult {
	list := r.results[taskName]
	if r.ttl <= 0 {
		return list
	}
	cutoff := r.now().Add(-r.ttl)
	i := 0
	for i < len(list) && list[i].StartTime.Before(cutoff) {
		i++
	}
	if i > 0 {
		list = append([]*domain.TaskResult(nil), list[i:]...)
		r.results[taskName] = list
	}
	return list
}

// ScheduleRepository keeps schedule definitions keyed by name.
type ScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[string]*domain.Schedule
}

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{schedules: make(map[string]*domain.Schedule)}
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *domain.Schedule) error {
	stored, err := clone(schedule)
	if err != nil {
		return fmt.Errorf("failed to copy schedule %s: %w", schedule.Name, err)
	}
	r.mu.Lock()
	r.schedules[schedule.Name] = stored
	r.mu.Unlock()
	return nil
}

func (r *ScheduleRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	delete(r.schedules, name)
	r.mu.Unlock()
	return nil
}

func (r *ScheduleRepository) Get(_ context.Context, name string) (*domain.Schedule, error) {
	r.mu.RLock()
	s, ok := r.schedules[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	return clone(s)
}

// List returns schedules sorted by name.
func (r *ScheduleRepository) List(_ context.Context) ([]*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Schedule, 0, len(r.schedules))
	for _, s := range r.schedules {
		c, err := clone(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// clone deep-copies through JSON, matching what the etcd repositories hand back.
func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ domain.ResultRepository   = (*ResultRepository)(nil)
	_ domain.ScheduleRepository = (*ScheduleRepository)(nil)
)
