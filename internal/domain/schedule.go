package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrScheduleNotFound is a sentinel error returned when a schedule is not found.
var ErrScheduleNotFound = errors.New("schedule not found")

// Schedule is a recurring invocation of a task, executed by the provider on a cron expression.
type Schedule struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	TaskName   string                     `json:"task_name"`
	Cron       string                     `json:"cron"`
	Args       []json.RawMessage          `json:"args"`
	Kwargs     map[string]json.RawMessage `json:"kwargs"`
	Retries    *int                       `json:"retries,omitempty"`
	ProviderID string                     `json:"provider_id,omitempty"` // schedule id assigned by the queue provider
	Paused     bool                       `json:"paused"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// Validate checks the fields every schedule needs. Cron syntax and task
// existence are checked by the schedule service.
func (s *Schedule) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schedule name cannot be empty")
	}
	if s.TaskName == "" {
		return fmt.Errorf("schedule task name cannot be empty")
	}
	if s.Cron == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	if s.Args == nil {
		s.Args = []json.RawMessage{}
	}
	if s.Kwargs == nil {
		s.Kwargs = map[string]json.RawMessage{}
	}
	return nil
}

// Payload returns the message body the provider delivers on every tick.
func (s *Schedule) Payload() *Payload {
	return &Payload{TaskName: s.TaskName, Args: s.Args, Kwargs: s.Kwargs}
}

// ScheduleRepository persists schedule definitions.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *Schedule) error
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*Schedule, error)
	List(ctx context.Context) ([]*Schedule, error)
}

// ProviderSchedule is a schedule as reported by the queue provider.
type ProviderSchedule struct {
	ScheduleID  string `json:"scheduleId"`
	Cron        string `json:"cron"`
	Destination string `json:"destination"`
	Body        string `json:"body,omitempty"`
	Retries     int    `json:"retries,omitempty"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
	IsPaused    bool   `json:"isPaused,omitempty"`
}

// CreateScheduleRequest asks the provider to call Destination with Body on Cron.
type CreateScheduleRequest struct {
	Destination string
	Cron        string
	Body        []byte
	Retries     *int
	ScheduleID  string // optional; reusing an id overwrites the provider schedule
}

// ScheduleProvider manages schedules on the queue provider.
type ScheduleProvider interface {
	CreateSchedule(ctx context.Context, req *CreateScheduleRequest) (string, error)
	GetSchedule(ctx context.Context, scheduleID string) (*ProviderSchedule, error)
	ListSchedules(ctx context.Context) ([]*ProviderSchedule, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
	PauseSchedule(ctx context.Context, scheduleID string) error
	ResumeSchedule(ctx context.Context, scheduleID string) error
}
