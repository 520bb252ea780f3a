package app

import (
	"context"
	"log/slog"
	"time"

	"tasknotify/internal/config"
	"tasknotify/internal/domain"
	"tasknotify/internal/ports"
	"tasknotify/internal/service"
)

// Stats holds reminder run statistics.
type Stats struct {
	TotalTasks int
	Sent       int
	Skipped    int
	Locked     int
	Errors     int
}

// App runs the reminder worker.
type App struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	scanner   ports.TaskScanner
	processor *service.ReminderProcessor
}

// Options configures the App.
type Options struct {
	Config   *config.AppConfig
	Logger   *slog.Logger
	Scanner  ports.TaskScanner
	Reminder service.Reminder
	Lock     ports.ReminderLock
	Clock    func() time.Time
}

// New creates a new App with all dependencies injected.
func New(opts Options) *App {
	processor := service.NewReminderProcessor(
		opts.Reminder,
		opts.Lock,
		opts.Config.Worker.ReminderWindow,
		opts.Clock,
		opts.Logger.With("component", "reminder_processor"),
	)

	return &App{
		cfg:       opts.Config,
		logger:    opts.Logger,
		scanner:   opts.Scanner,
		processor: processor,
	}
}

// Run scans stored tasks once and requests the reminders that are due.
func (a *App) Run(ctx context.Context) (Stats, error) {
	a.logger.Info("starting reminder run")

	tasks, err := a.scanner.ScanTasks(ctx)
	if err != nil {
		return Stats{}, &domain.TaskError{
			Op:  "ScanTasks",
			Err: err,
		}
	}

	if len(tasks) == 0 {
		a.logger.Info("no tasks found")
		return Stats{}, nil
	}

	stats := a.processTasks(ctx, tasks)

	a.logger.Info("reminder run completed",
		"total_tasks", stats.TotalTasks,
		"sent", stats.Sent,
		"skipped", stats.Skipped,
		"locked", stats.Locked,
		"errors", stats.Errors,
	)

	return stats, nil
}

func (a *App) processTasks(ctx context.Context, tasks []*domain.Task) Stats {
	stats := Stats{TotalTasks: len(tasks)}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			a.logger.Warn("context cancelled, stopping processing")
			return stats
		default:
		}

		result, err := a.processor.ProcessTask(ctx, task)
		if err != nil {
			a.logger.Error("failed to process task",
				"task_id", task.ID,
				"error", err,
			)
		}

		switch result {
		case service.ReminderSent:
			stats.Sent++
		case service.ReminderSkipped:
			stats.Skipped++
		case service.ReminderLocked:
			stats.Locked++
		default:
			stats.Errors++
		}
	}

	return stats
}
