// Package memory provides in-process implementations of the storage ports.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"tasknotify/internal/domain"
	"tasknotify/internal/ports"
)

// Store keeps tasks, delivery history and reminder locks in memory. It
// implements ports.TaskRepository, ports.DeliveryLog, ports.ReminderLock and
// ports.TaskScanner.
type Store struct {
	mu         sync.Mutex
	tasks      map[string]domain.Task
	deliveries map[string][]ports.DeliveryEntry
	reminders  map[string]bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tasks:      make(map[string]domain.Task),
		deliveries: make(map[string][]ports.DeliveryEntry),
		reminders:  make(map[string]bool),
	}
}

// GetTask returns a copy of the stored task.
func (s *Store) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := task.Clone()
	return &c, nil
}

// SaveTask stores the task if its stored version equals expectedVersion.
func (s *Store) SaveTask(_ context.Context, task *domain.Task, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.tasks[task.ID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return domain.ErrVersionConflict
	}

	task.Version = expectedVersion + 1
	s.tasks[task.ID] = task.Clone()
	return nil
}

// ScanTasks returns every stored task ordered by id.
func (s *Store) ScanTasks(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		c := t.Clone()
		tasks = append(tasks, &c)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// AppendDeliveries appends to the task's delivery history.
func (s *Store) AppendDeliveries(_ context.Context, taskID string, entries []ports.DeliveryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[taskID] = append(s.deliveries[taskID], entries...)
	return nil
}

// ListDeliveries returns the task's delivery history.
func (s *Store) ListDeliveries(_ context.Context, taskID string) ([]ports.DeliveryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deliveries[taskID]), nil
}

// AcquireReminderLock returns true the first time it is called for a task and
// calendar day.
func (s *Store) AcquireReminderLock(_ context.Context, taskID string, day time.Time) (bool, error) {
	key := taskID + ":" + day.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reminders[key] {
		return false, nil
	}
	s.reminders[key] = true
	return true, nil
}
