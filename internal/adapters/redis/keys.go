package redis

import (
	"fmt"
	"time"
)

// Key patterns for Redis keys.
const (
	KeyPatternTaskState      = "task:%s:state"
	KeyPatternTaskDeliveries = "task:%s:deliveries"
	KeyPatternTaskReminder   = "task:%s:reminder:%s"

	scanPatternTaskState = "task:*:state"
)

func taskStateKey(taskID string) string {
	return fmt.Sprintf(KeyPatternTaskState, taskID)
}

func taskDeliveriesKey(taskID string) string {
	return fmt.Sprintf(KeyPatternTaskDeliveries, taskID)
}

func taskReminderKey(taskID string, day time.Time) string {
	return fmt.Sprintf(KeyPatternTaskReminder, taskID, day.Format("2006-01-02"))
}
