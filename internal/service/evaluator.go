package service

import (
	"time"

	"tasknotify/internal/domain"
)

// EvaluationResult represents the result of evaluating a task for a reminder.
type EvaluationResult struct {
	ShouldTrigger bool
	Reason        string
}

// EvaluateReminder checks whether a task is due for a reminder: it must be
// open (or sent back for revision), have a due date, and be overdue or due
// within window.
func EvaluateReminder(task *domain.Task, now time.Time, window time.Duration) EvaluationResult {
	if task.State == domain.TaskCompleted && task.Review != domain.ReviewRejectedForRevision {
		return EvaluationResult{Reason: "task completed"}
	}

	if task.DueAt.IsZero() {
		return EvaluationResult{Reason: "no due date"}
	}

	if task.IsOverdue(now) {
		return EvaluationResult{ShouldTrigger: true, Reason: "task overdue"}
	}

	if task.DueAt.Sub(now) <= window {
		return EvaluationResult{ShouldTrigger: true, Reason: "due within reminder window"}
	}

	return EvaluationResult{Reason: "not due yet"}
}
