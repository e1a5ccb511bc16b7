// cmd/stash is the management CLI: it lists tasks, publishes invocations
// and shows the schedules known to the provider.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stashed-tasks/internal/callback"
	"stashed-tasks/internal/config"
	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/infra/qstash"
	"stashed-tasks/internal/sampletasks"
	"stashed-tasks/internal/schedule"
	"stashed-tasks/internal/task"

	"github.com/spf13/pflag"
)

const usage = `usage: stash <command> [flags]

commands:
  tasks       list registered tasks
  publish     publish a task invocation to the queue
  schedules   list schedules known to the provider
`

var errUsage = errors.New("invalid usage")

type cli struct {
	app      *task.App
	provider domain.ScheduleProvider
	out      io.Writer
	errOut   io.Writer
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	client := qstash.NewClient(cfg.QStash.Token, cfg.QStash.URL, cfg.QStash.Timeout, logger)
	callbackURL := callback.Builder{Domain: cfg.Webhook.Domain, Path: cfg.Webhook.Path, ForceHTTPS: cfg.Webhook.ForceHTTPS}
	app := task.NewApp(task.NewRegistry(), client, callbackURL.URL, logger)
	if err := app.Install(sampletasks.Module(logger)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register tasks: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{app: app, provider: client, out: os.Stdout, errOut: os.Stderr}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(2)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.errOut, usage)
		return errUsage
	}
	switch args[0] {
	case "tasks":
		return c.tasks()
	case "publish":
		return c.publish(ctx, args[1:])
	case "schedules":
		return c.schedules(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprintf(c.errOut, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
}

func (c *cli) tasks() error {
	registry := c.app.Registry()
	return c.printJSON(map[string]any{
		"available_tasks": registry.Names(),
		"tasks":           registry.Discover(),
	})
}

func (c *cli) publish(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("publish", pflag.ContinueOnError)
	fs.SetOutput(c.errOut)
	name := fs.String("task", "", "name of the task to publish")
	rawArgs := fs.String("args", "[]", "positional arguments as a JSON array")
	rawKwargs := fs.String("kwargs", "{}", "keyword arguments as a JSON object")
	delay := fs.String("delay", "", "delivery delay such as 30s, 10m, 2h or 1d")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *name == "" {
		fmt.Fprintln(c.errOut, "publish: --task is required")
		return errUsage
	}

	t, err := c.app.Registry().Lookup(*name)
	if err != nil {
		return err
	}

	var opts task.AsyncOptions
	if err := json.Unmarshal([]byte(*rawArgs), &opts.Args); err != nil {
		return fmt.Errorf("--args must be a JSON array: %w", err)
	}
	if err := json.Unmarshal([]byte(*rawKwargs), &opts.Kwargs); err != nil {
		return fmt.Errorf("--kwargs must be a JSON object: %w", err)
	}
	if *delay != "" {
		seconds, err := schedule.ParseDuration(*delay)
		if err != nil {
			return err
		}
		opts.Delay = time.Duration(seconds) * time.Second
	}

	res, err := t.ApplyAsync(ctx, opts)
	if err != nil {
		return err
	}
	return c.printJSON(map[string]any{
		"task_name":    t.Name(),
		"task_id":      res.TaskID,
		"deduplicated": res.Deduplicated,
	})
}

func (c *cli) schedules(ctx context.Context) error {
	list, err := c.provider.ListSchedules(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ProviderSchedule{}
	}
	return c.printJSON(list)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
