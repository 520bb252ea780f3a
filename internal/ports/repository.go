package ports

import (
	"context"
	"time"

	"tasknotify/internal/domain"
)

// TaskRepository persists tasks.
type TaskRepository interface {
	// GetTask returns the stored task or domain.ErrNotFound.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// SaveTask stores the task if the stored version still equals
	// expectedVersion (0 for a new task) and bumps task.Version. It fails with
	// domain.ErrVersionConflict otherwise.
	SaveTask(ctx context.Context, task *domain.Task, expectedVersion int64) error
}

// DeliveryEntry records one dispatch result produced for a task.
type DeliveryEntry struct {
	Event      string    `json:"event"`
	TemplateID string    `json:"template_id"`
	Recipient  string    `json:"recipient"`
	Succeeded  bool      `json:"succeeded"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Failure    string    `json:"failure,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// DeliveryLog keeps the notification history of tasks.
type DeliveryLog interface {
	// AppendDeliveries appends entries to the task's delivery history.
	AppendDeliveries(ctx context.Context, taskID string, entries []DeliveryEntry) error

	// ListDeliveries returns the task's delivery history, oldest first.
	ListDeliveries(ctx context.Context, taskID string) ([]DeliveryEntry, error)
}

// ReminderLock ensures a reminder is requested at most once per task and day.
type ReminderLock interface {
	// AcquireReminderLock returns true if the caller is the first for this day.
	AcquireReminderLock(ctx context.Context, taskID string, day time.Time) (bool, error)
}
