// internal/domain/task.go
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskDescriptor describes a registered task. It is built when the task is
// registered and never changes afterwards.
type TaskDescriptor struct {
	Name         string         `json:"name"`
	Target       string         `json:"target"` // Go symbol of the handler, e.g. "stashed-tasks/internal/sampletasks.MathAdd"
	Deduplicated bool           `json:"deduplicated"`
	Options      map[string]any `json:"options,omitempty"`
}

// Invocation is a single call of a task that is about to be handed to the queue.
type Invocation struct {
	TaskName     string
	Args         []any
	Kwargs       map[string]any
	Delay        time.Duration
	Deduplicated bool
}

// Payload is the JSON body exchanged with the queue: {task_name, args, kwargs}.
type Payload struct {
	TaskName string                     `json:"task_name"`
	Args     []json.RawMessage          `json:"args"`
	Kwargs   map[string]json.RawMessage `json:"kwargs"`
}

// Validate checks the structural requirements of a decoded payload.
func (p *Payload) Validate() error {
	if p.TaskName == "" {
		return fmt.Errorf("task_name cannot be empty")
	}
	if p.Args == nil {
		p.Args = []json.RawMessage{}
	}
	if p.Kwargs == nil {
		p.Kwargs = map[string]json.RawMessage{}
	}
	return nil
}

// NewPayload encodes an invocation into the wire payload.
func NewPayload(inv *Invocation) (*Payload, error) {
	p := &Payload{
		TaskName: inv.TaskName,
		Args:     make([]json.RawMessage, 0, len(inv.Args)),
		Kwargs:   make(map[string]json.RawMessage, len(inv.Kwargs)),
	}
	for i, arg := range inv.Args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d of task %s: %w", i, inv.TaskName, err)
		}
		p.Args = append(p.Args, raw)
	}
	for name, arg := range inv.Kwargs {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode keyword argument %q of task %s: %w", name, inv.TaskName, err)
		}
		p.Kwargs[name] = raw
	}
	return p, nil
}
