package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"tasknotify/internal/domain"
)

// Scanner implements ports.TaskScanner using Redis.
type Scanner struct {
	client    *Client
	scanCount int64
	logger    *slog.Logger
}

// NewScanner creates a new Redis scanner.
func NewScanner(client *Client, scanCount int64, logger *slog.Logger) *Scanner {
	return &Scanner{
		client:    client,
		scanCount: scanCount,
		logger:    logger,
	}
}

// ScanTasks returns every stored task. In cluster mode every master is
// scanned.
func (s *Scanner) ScanTasks(ctx context.Context) ([]*domain.Task, error) {
	if cluster, ok := s.client.Native().(*redis.ClusterClient); ok {
		var (
			tasks []*domain.Task
			mu    sync.Mutex
		)
		err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			found, err := s.scan(ctx, node)
			if err != nil {
				return err
			}
			mu.Lock()
			tasks = append(tasks, found...)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}
		return tasks, nil
	}

	return s.scan(ctx, s.client.Native())
}

// scan performs the SCAN over one node and skips unreadable entries.
func (s *Scanner) scan(ctx context.Context, node redis.Cmdable) ([]*domain.Task, error) {
	var tasks []*domain.Task
	var cursor uint64

	for {
		keys, nextCursor, err := node.Scan(ctx, cursor, scanPatternTaskState, s.scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan redis keys: %w", err)
		}

		for _, key := range keys {
			data, err := node.Get(ctx, key).Result()
			if err != nil {
				s.logger.Warn("failed to get key", "key", key, "error", err)
				continue
			}

			var task domain.Task
			if err := json.Unmarshal([]byte(data), &task); err != nil {
				s.logger.Warn("failed to unmarshal task", "key", key, "error", err)
				continue
			}

			tasks = append(tasks, &task)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	s.logger.Debug("scan completed", "pattern", scanPatternTaskState, "count", len(tasks))
	return tasks, nil
}
