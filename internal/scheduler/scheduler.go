// Package scheduler wraps robfig/cron behind a small abstraction so the
// engine's periodic tasks are independently cancellable and can be driven
// by hand in tests.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one periodic unit of work. Tasks must be non-blocking with
// respect to external I/O; the engine keeps all I/O on its own edges.
type Task func()

// Runner schedules named tasks at fixed intervals.
type Runner interface {
	Every(interval time.Duration, name string, task Task) error
	Start()
	Stop(ctx context.Context)
}

// CronRunner implements Runner on top of robfig/cron.
type CronRunner struct {
	logger *slog.Logger
	cron   *cron.Cron
}

// NewCronRunner constructs a CronRunner.
func NewCronRunner(logger *slog.Logger) *CronRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronRunner{logger: logger, cron: cron.New()}
}

// Every registers a task to run at the given interval.
func (r *CronRunner) Every(interval time.Duration, name string, task Task) error {
	if interval <= 0 {
		interval = time.Minute
	}
	r.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		task()
	}))
	r.logger.Debug("periodic task registered",
		slog.String("task", name),
		slog.Duration("interval", interval))
	return nil
}

// Start begins running the registered tasks.
func (r *CronRunner) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for in-flight tasks up to the context
// deadline. History appended by completed ticks is never lost.
func (r *CronRunner) Stop(ctx context.Context) {
	done := r.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("scheduler stop timed out with tasks in flight")
	}
}

// ManualRunner collects tasks and runs them only when ticked; tests use it
// to drive the engine deterministically.
type ManualRunner struct {
	tasks map[string]Task
	order []string
}

// NewManualRunner constructs an empty ManualRunner.
func NewManualRunner() *ManualRunner {
	return &ManualRunner{tasks: map[string]Task{}}
}

// Every registers the task under its name.
func (r *ManualRunner) Every(_ time.Duration, name string, task Task) error {
	if _, exists := r.tasks[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tasks[name] = task
	return nil
}

// Start is a no-op; tasks run only via Tick.
func (r *ManualRunner) Start() {}

// Stop is a no-op.
func (r *ManualRunner) Stop(context.Context) {}

// Tick runs the named task once. Unknown names are ignored.
func (r *ManualRunner) Tick(name string) {
	if task, ok := r.tasks[name]; ok {
		task()
	}
}

// TickAll runs every registered task once in registration order.
func (r *ManualRunner) TickAll() {
	for _, name := range r.order {
		r.tasks[name]()
	}
}
