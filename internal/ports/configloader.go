package ports

import (
	"context"

	"tasknotify/internal/config"
)

// NotificationConfigLoader loads template and binding configuration.
type NotificationConfigLoader interface {
	// LoadNotificationConfig loads the templates document.
	LoadNotificationConfig(ctx context.Context) (*config.NotificationConfig, error)
}
