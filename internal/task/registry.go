package task

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"stashed-tasks/internal/domain"
)

// NotFoundError is returned by Lookup for an unknown name. Available is a
// snapshot of the registry taken when the error was built.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Task '%s' not found. Available tasks: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == domain.ErrTaskNotFound }

// Registry maps logical task names to tasks. It is filled once at startup
// and read concurrently afterwards.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register adds t under its logical name.
func (r *Registry) Register(t *Task) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("cannot register a task without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tasks[name]; ok {
		return fmt.Errorf("%w: %q (registered by %s, registering %s)",
			domain.ErrDuplicateTask, name, existing.descriptor.Target, t.descriptor.Target)
	}
	r.tasks[name] = t
	return nil
}

// Lookup resolves name to exactly one task.
func (r *Registry) Lookup(name string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Available: r.sortedNames()}
	}
	return t, nil
}

// Validate reports whether name is registered, with the same error as Lookup.
func (r *Registry) Validate(name string) error {
	_, err := r.Lookup(name)
	return err
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// sortedNames must be called with mu held.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discover returns the descriptor of every registered task, sorted by name.
// It has no side effects and can be called any number of times.
func (r *Registry) Discover() []domain.TaskDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TaskDescriptor, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
