package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"stashed-tasks/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTasks map[string]bool

func (f fakeTasks) Validate(name string) error {
	if !f[name] {
		return fmt.Errorf("task %q: %w", name, domain.ErrTaskNotFound)
	}
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	schedules map[string]*domain.ProviderSchedule
	created   []*domain.CreateScheduleRequest
	nextID    int
	failWith  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{schedules: make(map[string]*domain.ProviderSchedule)}
}

func (f *fakeProvider) CreateSchedule(_ context.Context, req *domain.CreateScheduleRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.created = append(f.created, req)
	id := req.ScheduleID
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("scd_%d", f.nextID)
	}
	f.schedules[id] = &domain.ProviderSchedule{ScheduleID: id, Cron: req.Cron, Destination: req.Destination, Body: string(req.Body)}
	return id, nil
}

func (f *fakeProvider) GetSchedule(_ context.Context, id string) (*domain.ProviderSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	return s, nil
}

func (f *fakeProvider) ListSchedules(context.Context) ([]*domain.ProviderSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]*domain.ProviderSchedule, 0, len(f.schedules))
	for _, s := range f.schedules {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeProvider) DeleteSchedule(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.schedules, id)
	return nil
}

func (f *fakeProvider) PauseSchedule(_ context.Context, id string) error {
	return f.setPaused(id, true)
}

func (f *fakeProvider) ResumeSchedule(_ context.Context, id string) error {
	return f.setPaused(id, false)
}

func (f *fakeProvider) setPaused(id string, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return domain.ErrScheduleNotFound
	}
	s.IsPaused = paused
	return nil
}
