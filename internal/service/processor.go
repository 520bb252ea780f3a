package service

import (
	"context"
	"log/slog"
	"time"

	"tasknotify/internal/domain"
	"tasknotify/internal/metrics"
	"tasknotify/internal/ports"
)

// ReminderResult is the outcome of processing one task.
type ReminderResult string

const (
	ReminderSent    ReminderResult = "sent"
	ReminderSkipped ReminderResult = "skipped"
	ReminderLocked  ReminderResult = "locked"
	ReminderFailed  ReminderResult = "failed"
)

// Reminder requests a reminder for a stored task.
type Reminder interface {
	RequestReminder(ctx context.Context, taskID string) (*Outcome, error)
}

// ReminderProcessor decides whether a task needs a reminder and sends at
// most one per task and day.
type ReminderProcessor struct {
	reminder Reminder
	lock     ports.ReminderLock
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewReminderProcessor creates a new processor with injected dependencies.
func NewReminderProcessor(
	reminder Reminder,
	lock ports.ReminderLock,
	window time.Duration,
	clock func() time.Time,
	logger *slog.Logger,
) *ReminderProcessor {
	if clock == nil {
		clock = time.Now
	}
	return &ReminderProcessor{
		reminder: reminder,
		lock:     lock,
		window:   window,
		now:      clock,
		logger:   logger,
	}
}

// ProcessTask checks a single task and requests a reminder if needed.
func (p *ReminderProcessor) ProcessTask(ctx context.Context, task *domain.Task) (ReminderResult, error) {
	logger := p.logger.With(
		"task_id", task.ID,
		"state", task.State,
		"due_at", task.DueAt,
	)

	now := p.now()
	result := EvaluateReminder(task, now, p.window)
	if !result.ShouldTrigger {
		logger.Debug("reminder not needed", "reason", result.Reason)
		metrics.IncrementReminder(string(ReminderSkipped))
		return ReminderSkipped, nil
	}

	acquired, err := p.lock.AcquireReminderLock(ctx, task.ID, now)
	if err != nil {
		metrics.IncrementReminder(string(ReminderFailed))
		return ReminderFailed, &domain.TaskError{TaskID: task.ID, Op: "AcquireReminderLock", Err: err}
	}
	if !acquired {
		logger.Debug("reminder already sent today")
		metrics.IncrementReminder(string(ReminderLocked))
		return ReminderLocked, nil
	}

	outcome, err := p.reminder.RequestReminder(ctx, task.ID)
	if err != nil {
		metrics.IncrementReminder(string(ReminderFailed))
		return ReminderFailed, err
	}

	logger.Info("reminder requested",
		"reason", result.Reason,
		"days_until_due", task.DaysUntilDue(now),
		"succeeded", domain.CountSucceeded(outcome.Results),
	)
	metrics.IncrementReminder(string(ReminderSent))

	return ReminderSent, nil
}
