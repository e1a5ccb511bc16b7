package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"stashed-tasks/internal/domain"
)

// ErrMissingArgument is returned when a handler asks for an argument that was not passed.
var ErrMissingArgument = errors.New("missing argument")

// Arguments carries the JSON-encoded positional and keyword arguments of a call.
// Direct calls and queue callbacks both go through this encoding, so a
// handler sees the same values either way.
type Arguments struct {
	Args   []json.RawMessage
	Kwargs map[string]json.RawMessage
}

// NewArguments encodes Go values into Arguments.
func NewArguments(args []any, kwargs map[string]any) (*Arguments, error) {
	p, err := domain.NewPayload(&domain.Invocation{Args: args, Kwargs: kwargs})
	if err != nil {
		return nil, err
	}
	return &Arguments{Args: p.Args, Kwargs: p.Kwargs}, nil
}

// Len returns the number of positional arguments.
func (a *Arguments) Len() int { return len(a.Args) }

// Arg decodes positional argument i into v.
func (a *Arguments) Arg(i int, v any) error {
	if i < 0 || i >= len(a.Args) {
		return fmt.Errorf("%w: positional argument %d (got %d)", ErrMissingArgument, i, len(a.Args))
	}
	if err := json.Unmarshal(a.Args[i], v); err != nil {
		return fmt.Errorf("failed to decode positional argument %d: %w", i, err)
	}
	return nil
}

// Kwarg decodes keyword argument name into v. It reports false when the
// argument is absent, leaving v untouched.
func (a *Arguments) Kwarg(name string, v any) (bool, error) {
	raw, ok := a.Kwargs[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode keyword argument %q: %w", name, err)
	}
	return true, nil
}

// KwargNames returns the keyword argument names in sorted order.
func (a *Arguments) KwargNames() []string {
	names := make([]string, 0, len(a.Kwargs))
	for name := range a.Kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
