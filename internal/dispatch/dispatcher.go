// Package dispatch sends batches of rendered messages over a connection-gated
// channel and reports one result per message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tasknotify/internal/channel"
	"tasknotify/internal/domain"
	"tasknotify/internal/metrics"
	"tasknotify/internal/ports"
)

// Dispatcher sends messages strictly in order, one at a time.
type Dispatcher struct {
	conn   *channel.Manager
	sender ports.Sender
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher gated on conn.
func NewDispatcher(conn *channel.Manager, sender ports.Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		conn:   conn,
		sender: sender,
		logger: logger,
	}
}

// SendAll attempts every message in order and returns exactly len(msgs)
// results in the same order.
//
// The channel must be connected when the call starts, otherwise SendAll fails
// with domain.ErrChannelUnavailable and attempts nothing. Once started, the
// batch runs to completion: cancelling ctx does not abort it, and an individual
// failure is reported in its result rather than returned.
func (d *Dispatcher) SendAll(ctx context.Context, msgs []domain.RenderedMessage) ([]domain.DispatchResult, error) {
	if err := d.conn.RequireConnected(); err != nil {
		metrics.IncrementDispatchRejected(d.conn.Name())
		d.logger.Warn("dispatch rejected", "messages", len(msgs), "error", err)
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	results := make([]domain.DispatchResult, 0, len(msgs))

	for i, msg := range msgs {
		start := time.Now()
		deliveryID, err := d.sender.Send(ctx, msg)
		elapsed := time.Since(start)

		result := domain.DispatchResult{Recipient: msg.Recipient}
		if err != nil {
			result.FailureReason = failureReason(err)
			d.logger.Warn("message send failed",
				"index", i,
				"recipient", msg.Recipient,
				"category", msg.Category,
				"error", err,
			)
		} else {
			if deliveryID == "" {
				deliveryID = NewDeliveryID()
			}
			result.Succeeded = true
			result.DeliveryID = deliveryID
			d.logger.Debug("message sent",
				"index", i,
				"recipient", msg.Recipient,
				"delivery_id", deliveryID,
			)
		}

		metrics.RecordSend(string(msg.Category), result.Succeeded, elapsed)
		results = append(results, result)
	}

	d.logger.Info("dispatch completed",
		"messages", len(msgs),
		"succeeded", domain.CountSucceeded(results),
	)

	return results, nil
}

// DeliveryStatus looks up a delivery id returned in an earlier result. Senders
// that cannot look messages up report every id as not found.
func (d *Dispatcher) DeliveryStatus(ctx context.Context, deliveryID string) (domain.DeliveryStatus, error) {
	checker, ok := d.sender.(ports.StatusChecker)
	if !ok {
		return domain.DeliveryStatus{}, fmt.Errorf("delivery %s: status lookup unsupported: %w", deliveryID, domain.ErrNotFound)
	}
	return checker.DeliveryStatus(ctx, deliveryID)
}

// NewDeliveryID returns a unique opaque delivery token.
func NewDeliveryID() string {
	return "WA_" + uuid.NewString()
}

// failureReason keeps the cause short: the recipient is already in the result.
func failureReason(err error) string {
	var msgErr *domain.MessagingError
	if errors.As(err, &msgErr) && msgErr.Err != nil {
		err = msgErr.Err
	}
	if reason := err.Error(); reason != "" {
		return reason
	}
	return "send failed"
}
