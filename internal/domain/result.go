// internal/domain/result.go
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrResultNotFound is returned when a task result does not exist.
var ErrResultNotFound = errors.New("task result not found")

// TaskStatus is the outcome of a task execution triggered by the webhook.
type TaskStatus string

const (
	TaskStatusSuccess        TaskStatus = "success"
	TaskStatusExecutionError TaskStatus = "execution_error"
)

// TaskResult records one execution of a task triggered by the queue.
type TaskResult struct {
	ID        string                     `json:"id"`
	MessageID string                     `json:"message_id,omitempty"` // provider message id, if the request carried one
	TaskName  string                     `json:"task_name"`
	Status    TaskStatus                 `json:"status"`
	Args      []json.RawMessage          `json:"args"`
	Kwargs    map[string]json.RawMessage `json:"kwargs"`
	Result    json.RawMessage            `json:"result,omitempty"`
	Error     string                     `json:"error,omitempty"`
	Retried   int                        `json:"retried"`
	StartTime time.Time                  `json:"start_time"`
	EndTime   time.Time                  `json:"end_time"`
}

// Validate checks if the task result is valid.
func (r *TaskResult) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("task result ID cannot be empty")
	}
	if r.TaskName == "" {
		return fmt.Errorf("task result task name cannot be empty")
	}
	if r.StartTime.IsZero() {
		return fmt.Errorf("task result start time cannot be zero")
	}
	if r.Status == "" {
		return fmt.Errorf("task result status cannot be empty")
	}
	return nil
}

// ResultRepository persists task results.
type ResultRepository interface {
	// Save persists a single task result.
	Save(ctx context.Context, result *TaskResult) error
	// ListByTaskName returns results of a task, newest first, paginated.
	ListByTaskName(ctx context.Context, taskName string, page, pageSize int) ([]*TaskResult, error)
	// Get retrieves a single result by task name and result ID.
	Get(ctx context.Context, taskName, resultID string) (*TaskResult, error)
}
