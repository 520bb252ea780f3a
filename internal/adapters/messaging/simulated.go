package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasknotify/internal/domain"
)

// ErrSimulatedFailure is returned by the simulated sender for a failed attempt.
var ErrSimulatedFailure = errors.New("failed to send message, please try again")

// Outcome decides whether a simulated send succeeds. A nil return means
// success.
type Outcome func(msg domain.RenderedMessage) error

// SimulatedConfig configures the simulated sender.
type SimulatedConfig struct {
	Latency     time.Duration
	SuccessRate float64
	Seed        uint64
}

// SimulatedSender implements ports.Sender without any network delivery.
// It waits for the configured latency and asks its Outcome for the result.
type SimulatedSender struct {
	latency time.Duration
	outcome Outcome
	logger  *slog.Logger

	mu   sync.Mutex
	sent map[string]string // delivery id -> recipient
}

// NewSimulatedSender creates a sender whose outcomes come from a generator
// seeded with cfg.Seed.
func NewSimulatedSender(cfg SimulatedConfig, logger *slog.Logger) *SimulatedSender {
	return NewSimulatedSenderWithOutcome(cfg.Latency, SeededOutcome(cfg.Seed, cfg.SuccessRate), logger)
}

// NewSimulatedSenderWithOutcome creates a sender with an explicit outcome.
func NewSimulatedSenderWithOutcome(latency time.Duration, outcome Outcome, logger *slog.Logger) *SimulatedSender {
	if outcome == nil {
		outcome = AlwaysSucceed()
	}
	return &SimulatedSender{
		latency: latency,
		outcome: outcome,
		logger:  logger,
		sent:    make(map[string]string),
	}
}

// Send simulates delivering msg.
func (s *SimulatedSender) Send(ctx context.Context, msg domain.RenderedMessage) (string, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", &domain.MessagingError{Recipient: msg.Recipient, Op: "Send", Err: ctx.Err()}
		}
	}

	if err := s.outcome(msg); err != nil {
		return "", &domain.MessagingError{Recipient: msg.Recipient, Op: "Send", Err: err}
	}

	deliveryID := "WA_" + uuid.NewString()
	s.mu.Lock()
	s.sent[deliveryID] = msg.Recipient
	s.mu.Unlock()

	s.logger.Info("sending message",
		"recipient", msg.Recipient,
		"category", msg.Category,
		"priority", msg.Priority,
		"delivery_id", deliveryID,
	)
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		if data, err := json.MarshalIndent(msg, "", "  "); err == nil {
			s.logger.Debug("message payload", "payload", string(data))
		}
	}

	return deliveryID, nil
}

// DeliveryStatus reports every message this sender accepted as delivered.
func (s *SimulatedSender) DeliveryStatus(_ context.Context, deliveryID string) (domain.DeliveryStatus, error) {
	s.mu.Lock()
	recipient, ok := s.sent[deliveryID]
	s.mu.Unlock()
	if !ok {
		return domain.DeliveryStatus{}, fmt.Errorf("delivery %s: %w", deliveryID, domain.ErrNotFound)
	}
	return domain.DeliveryStatus{
		DeliveryID: deliveryID,
		Recipient:  recipient,
		State:      domain.DeliveryDelivered,
	}, nil
}

// AlwaysSucceed returns an outcome that never fails.
func AlwaysSucceed() Outcome {
	return func(domain.RenderedMessage) error { return nil }
}

// SeededOutcome returns an outcome that succeeds with probability successRate
// using a deterministic generator. Rates outside (0,1] default to 0.9.
func SeededOutcome(seed uint64, successRate float64) Outcome {
	if successRate <= 0 || successRate > 1 {
		successRate = 0.9
	}
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	return func(domain.RenderedMessage) error {
		mu.Lock()
		roll := rng.Float64()
		mu.Unlock()
		if roll < successRate {
			return nil
		}
		return ErrSimulatedFailure
	}
}

// SequenceOutcome returns outcomes from a fixed script: true succeeds, false
// fails. Once the script is exhausted every send succeeds.
func SequenceOutcome(script ...bool) Outcome {
	var mu sync.Mutex
	next := 0

	return func(domain.RenderedMessage) error {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(script) {
			return nil
		}
		ok := script[next]
		next++
		if ok {
			return nil
		}
		return ErrSimulatedFailure
	}
}

// FailRecipients returns an outcome that fails for the listed recipients.
func FailRecipients(recipients ...string) Outcome {
	failing := make(map[string]bool, len(recipients))
	for _, r := range recipients {
		failing[r] = true
	}
	return func(msg domain.RenderedMessage) error {
		if failing[msg.Recipient] {
			return ErrSimulatedFailure
		}
		return nil
	}
}
