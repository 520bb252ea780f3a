package ports

import (
	"context"

	"tasknotify/internal/domain"
)

// Sender delivers a single rendered message over the dispatch channel.
type Sender interface {
	// Send attempts delivery and returns the channel's delivery id on success.
	Send(ctx context.Context, msg domain.RenderedMessage) (string, error)
}

// StatusChecker looks up a message by the delivery id Send returned.
// Unknown ids fail with domain.ErrNotFound.
type StatusChecker interface {
	DeliveryStatus(ctx context.Context, deliveryID string) (domain.DeliveryStatus, error)
}
