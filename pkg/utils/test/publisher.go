package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// MockPublisher records published events. Safe for concurrent use.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnStoredEvent
	closed bool

	// Fail causes PublishTurn to return an error.
	Fail bool

	// Block, when set, holds PublishTurn until the channel is closed.
	Block chan struct{}
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTurn(_ context.Context, event *eventstream.TurnStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	if m.Block != nil {
		<-m.Block
	}
	if m.Fail {
		return errors.New("mock publish failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of the published events.
func (m *MockPublisher) Events() []*eventstream.TurnStoredEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.TurnStoredEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
