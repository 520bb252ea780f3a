package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tasknotify/internal/domain"
	"tasknotify/internal/ports"
)

// reminderLockTTL outlives the calendar day the lock is for.
const reminderLockTTL = 48 * time.Hour

// TaskStore implements ports.TaskRepository, ports.DeliveryLog and
// ports.ReminderLock using Redis.
type TaskStore struct {
	client *Client
	ttl    time.Duration
}

// NewTaskStore creates a task store. A zero ttl keeps keys forever.
func NewTaskStore(client *Client, ttl time.Duration) *TaskStore {
	return &TaskStore{
		client: client,
		ttl:    ttl,
	}
}

// GetTask retrieves a task by id.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := s.client.Get(ctx, taskStateKey(taskID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}

	return &task, nil
}

// SaveTask stores the task if the stored version equals expectedVersion.
// The check and the write run in a WATCH/MULTI transaction so concurrent
// writers in other processes cannot interleave.
func (s *TaskStore) SaveTask(ctx context.Context, task *domain.Task, expectedVersion int64) error {
	key := taskStateKey(task.ID)

	next := *task
	next.Version = expectedVersion + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	err = s.client.Native().Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return domain.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		task.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, domain.ErrVersionConflict):
		return domain.ErrVersionConflict
	default:
		return fmt.Errorf("save task: %w", err)
	}
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get task: %w", err)
	}

	var stored struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, fmt.Errorf("unmarshal task: %w", err)
	}
	return stored.Version, nil
}

// DeleteTask removes a task and its delivery history.
func (s *TaskStore) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.client.Del(ctx, taskStateKey(taskID), taskDeliveriesKey(taskID)); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// AppendDeliveries pushes entries onto the task's delivery list.
func (s *TaskStore) AppendDeliveries(ctx context.Context, taskID string, entries []ports.DeliveryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal delivery: %w", err)
		}
		values = append(values, data)
	}

	key := taskDeliveriesKey(taskID)
	_, err := s.client.Native().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append deliveries: %w", err)
	}

	return nil
}

// ListDeliveries returns the task's delivery history, oldest first.
func (s *TaskStore) ListDeliveries(ctx context.Context, taskID string) ([]ports.DeliveryEntry, error) {
	raw, err := s.client.Native().LRange(ctx, taskDeliveriesKey(taskID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}

	entries := make([]ports.DeliveryEntry, 0, len(raw))
	for _, r := range raw {
		var e ports.DeliveryEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("unmarshal delivery: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// AcquireReminderLock claims the reminder slot for a task and calendar day.
func (s *TaskStore) AcquireReminderLock(ctx context.Context, taskID string, day time.Time) (bool, error) {
	ok, err := s.client.SetNX(ctx, taskReminderKey(taskID, day), day.UTC().Format(time.RFC3339), reminderLockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire reminder lock: %w", err)
	}
	return ok, nil
}
