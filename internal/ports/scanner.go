package ports

import (
	"context"

	"tasknotify/internal/domain"
)

// TaskScanner scans for persisted tasks in the data store.
type TaskScanner interface {
	// ScanTasks returns every stored task.
	ScanTasks(ctx context.Context) ([]*domain.Task, error)
}
