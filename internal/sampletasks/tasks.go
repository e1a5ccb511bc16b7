// Package sampletasks registers the demo tasks served by cmd/server.
package sampletasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stashed-tasks/internal/task"
)

// Module registers every sample task on app.
func Module(logger *slog.Logger) task.Module {
	logger = logger.With("component", "sample-tasks")
	return func(app *task.App) error {
		if _, err := app.Task(MathAdd(logger), task.WithName("Math adder")); err != nil {
			return err
		}
		if _, err := app.Task(Greet, task.WithName("greet"), task.Deduplicated()); err != nil {
			return err
		}
		if _, err := app.Task(Sleep, task.WithName("sleep"), task.WithRetries(0)); err != nil {
			return err
		}
		return nil
	}
}

// MathAdd adds the first two positional arguments. Extra arguments are ignored.
func MathAdd(logger *slog.Logger) task.Handler {
	return func(_ context.Context, args *task.Arguments) (any, error) {
		var a, b float64
		if err := args.Arg(0, &a); err != nil {
			return nil, err
		}
		if err := args.Arg(1, &b); err != nil {
			return nil, err
		}
		logger.Info("adding numbers", "a", a, "b", b)
		return a + b, nil
	}
}

// Greet builds a greeting from the "name" keyword (or first positional) argument.
func Greet(_ context.Context, args *task.Arguments) (any, error) {
	var name string
	ok, err := args.Kwarg("name", &name)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := args.Arg(0, &name); err != nil {
			return nil, err
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	return map[string]string{"greeting": "Hello, " + name + "!"}, nil
}

// Sleep waits for the number of seconds in the first argument, honouring cancellation.
func Sleep(ctx context.Context, args *task.Arguments) (any, error) {
	var seconds float64
	if err := args.Arg(0, &seconds); err != nil {
		return nil, err
	}
	if seconds < 0 {
		return nil, fmt.Errorf("seconds must not be negative, got %v", seconds)
	}
	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return seconds, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
