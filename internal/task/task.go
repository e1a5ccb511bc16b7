// Package task provides the deferred-task API: a registry of named handlers
// and a wrapper that either runs a handler in-process or publishes the call
// to the hosted queue.
package task

import (
	"context"
	"errors"
	"maps"
	"reflect"
	"runtime"
	"time"

	"stashed-tasks/internal/domain"
)

var (
	// ErrConflictingDelay is returned when both Delay and Countdown are set.
	ErrConflictingDelay = errors.New("delay and countdown are aliases; set only one")
	// ErrNegativeDelay is returned for a delay below zero.
	ErrNegativeDelay = errors.New("delay cannot be negative")
)

// Handler is the function behind a task.
type Handler func(ctx context.Context, args *Arguments) (any, error)

// Option configures a task at registration time.
type Option func(*Task)

// WithName overrides the logical name, which otherwise is the handler's Go symbol.
func WithName(name string) Option {
	return func(t *Task) { t.descriptor.Name = name }
}

// Deduplicated asks the provider to drop messages with identical content
// inside its deduplication window.
func Deduplicated() Option {
	return func(t *Task) {
		t.descriptor.Deduplicated = true
		t.descriptor.Options["deduplicated"] = true
	}
}

// WithRetries sets how many times the provider redelivers a failed callback.
func WithRetries(n int) Option {
	return func(t *Task) {
		t.retries = &n
		t.descriptor.Options["retries"] = n
	}
}

// Task wraps a Handler with direct, deferred and scheduled entry points.
type Task struct {
	descriptor domain.TaskDescriptor
	handler    Handler
	retries    *int
	app        *App
}

func newTask(app *App, fn Handler, opts ...Option) *Task {
	target := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	t := &Task{
		descriptor: domain.TaskDescriptor{
			Name:    target,
			Target:  target,
			Options: map[string]any{},
		},
		handler: fn,
		app:     app,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the logical task name.
func (t *Task) Name() string { return t.descriptor.Name }

// Descriptor returns a copy of the task's descriptor.
func (t *Task) Descriptor() domain.TaskDescriptor {
	d := t.descriptor
	d.Options = maps.Clone(t.descriptor.Options)
	return d
}

// Call runs the task synchronously in this process with positional arguments.
func (t *Task) Call(ctx context.Context, args ...any) (any, error) {
	return t.CallWith(ctx, args, nil)
}

// CallWith runs the task synchronously with positional and keyword arguments.
func (t *Task) CallWith(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	a, err := NewArguments(args, kwargs)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, a)
}

// Run invokes the handler with already encoded arguments.
func (t *Task) Run(ctx context.Context, args *Arguments) (any, error) {
	return t.handler(ctx, args)
}

// AsyncResult identifies a published invocation.
type AsyncResult struct {
	TaskID       string
	Deduplicated bool // the provider dropped the message as a duplicate
}

// AsyncOptions are the arguments of ApplyAsync. Delay and Countdown are
// aliases; zero means immediate delivery.
type AsyncOptions struct {
	Args      []any
	Kwargs    map[string]any
	Delay     time.Duration
	Countdown time.Duration
}

func (o AsyncOptions) wait() (time.Duration, error) {
	if o.Delay != 0 && o.Countdown != 0 {
		return 0, ErrConflictingDelay
	}
	d := o.Delay
	if o.Countdown != 0 {
		d = o.Countdown
	}
	if d < 0 {
		return 0, ErrNegativeDelay
	}
	return d, nil
}

// Delay publishes the call for immediate delivery.
func (t *Task) Delay(ctx context.Context, args ...any) (*AsyncResult, error) {
	return t.ApplyAsync(ctx, AsyncOptions{Args: args})
}

// ApplyAsync publishes the call, delivered after the optional delay.
func (t *Task) ApplyAsync(ctx context.Context, opts AsyncOptions) (*AsyncResult, error) {
	wait, err := opts.wait()
	if err != nil {
		return nil, err
	}
	return t.app.publish(ctx, t, &domain.Invocation{
		TaskName:     t.descriptor.Name,
		Args:         opts.Args,
		Kwargs:       opts.Kwargs,
		Delay:        wait,
		Deduplicated: t.descriptor.Deduplicated,
	})
}
