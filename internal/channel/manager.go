// Package channel tracks availability of the dispatch channel and gates sends
// on it.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tasknotify/internal/domain"
)

// State is the connection state of a channel.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
)

// Connector performs the handshake for a channel.
type Connector interface {
	Connect(ctx context.Context) error
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) error

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context) error {
	return f(ctx)
}

// SimulatedConnector completes a handshake after a fixed delay.
func SimulatedConnector(delay time.Duration) Connector {
	return ConnectorFunc(func(ctx context.Context) error {
		if delay <= 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Manager owns the connection state of one dispatch channel. It is safe for
// concurrent use; only Connect and Disconnect change the state.
type Manager struct {
	name      string
	connector Connector
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	pending chan struct{} // closed when the in-flight Connect finishes
}

// NewManager creates a disconnected manager for the named channel.
func NewManager(name string, connector Connector, logger *slog.Logger) *Manager {
	return &Manager{
		name:      name,
		connector: connector,
		logger:    logger,
		state:     Disconnected,
	}
}

// Name returns the channel name.
func (m *Manager) Name() string {
	return m.name
}

// State returns a snapshot of the current state. The value may be stale as
// soon as it is returned.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the channel. It returns immediately when already
// connected. Concurrent callers wait for the handshake already in flight.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case Connected:
		m.mu.Unlock()
		return nil
	case Connecting:
		wait := m.pending
		m.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		return m.RequireConnected()
	}

	m.state = Connecting
	done := make(chan struct{})
	m.pending = done
	m.mu.Unlock()

	m.logger.Info("connecting channel", "channel", m.name)
	err := m.connector.Connect(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = Disconnected
	} else {
		m.state = Connected
	}
	m.pending = nil
	close(done)
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("channel connect failed", "channel", m.name, "error", err)
		return &domain.ChannelError{
			Channel: m.name,
			State:   string(Disconnected),
			Err:     fmt.Errorf("%w: %w", domain.ErrChannelUnavailable, err),
		}
	}

	m.logger.Info("channel connected", "channel", m.name)
	return nil
}

// Disconnect marks the channel as unavailable.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Connected {
		m.state = Disconnected
		m.logger.Info("channel disconnected", "channel", m.name)
	}
}

// RequireConnected fails with ErrChannelUnavailable unless the channel is
// connected.
func (m *Manager) RequireConnected() error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state != Connected {
		return &domain.ChannelError{Channel: m.name, State: string(state), Err: domain.ErrChannelUnavailable}
	}
	return nil
}
