package http

import (
	"encoding/json"

	"stashed-tasks/internal/domain"
)

// SaveScheduleRequest is the body of POST /schedules.
type SaveScheduleRequest struct {
	Name     string                     `json:"name" validate:"required,min=1,max=128,excludesall=/"`
	TaskName string                     `json:"task_name" validate:"required,max=256"`
	Cron     string                     `json:"cron" validate:"required,cron"`
	Args     []json.RawMessage          `json:"args"`
	Kwargs   map[string]json.RawMessage `json:"kwargs"`
	Retries  *int                       `json:"retries,omitempty" validate:"omitempty,gte=0,lte=10"`
	Paused   bool                       `json:"paused"`
}

// ToDomainSchedule converts the request into a domain.Schedule.
func (r *SaveScheduleRequest) ToDomainSchedule() *domain.Schedule {
	return &domain.Schedule{
		Name:     r.Name,
		TaskName: r.TaskName,
		Cron:     r.Cron,
		Args:     r.Args,
		Kwargs:   r.Kwargs,
		Retries:  r.Retries,
		Paused:   r.Paused,
	}
}

// TasksResponse lists the registered tasks.
type TasksResponse struct {
	AvailableTasks []string                `json:"available_tasks"`
	Tasks          []domain.TaskDescriptor `json:"tasks"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
