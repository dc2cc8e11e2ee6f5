package services

import (
	"context"
	"errors"
	"sync"
)

// PublishedMessage is a message captured by MockPublisher
type PublishedMessage struct {
	RoutingKey string
	MessageID  string
	Body       []byte
}

// MockPublisher records published messages for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	failures int
}

// NewMockPublisher creates a new mock publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// FailNext makes the next n Publish calls return an error
func (m *MockPublisher) FailNext(n int) {
	m.mu.Lock()
	m.failures = n
	m.mu.Unlock()
}

// Publish records the message
func (m *MockPublisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.messages = append(m.messages, PublishedMessage{RoutingKey: routingKey, MessageID: messageID, Body: body})
	return nil
}

// Messages returns a copy of everything published so far
func (m *MockPublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Close does nothing
func (m *MockPublisher) Close() error {
	return nil
}
