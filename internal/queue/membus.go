package queue

import (
	"context"
	"sync"
)

// MemoryBus is an in-process transport implementing Publisher and
// Subscriber. It delivers synchronously to the registered handler and keeps
// rejected deliveries for later redelivery, approximating the broker's
// at-least-once contract closely enough to exercise the listeners without
// RabbitMQ. Used by tests and local development.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[string]Handler
	pending  []delivery
	// Published records every successfully published message per topic,
	// so tests can assert on outbound traffic.
	published map[string][][]byte
}

type delivery struct {
	topic string
	body  []byte
}

// NewMemoryBus returns an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers:  make(map[string]Handler),
		published: make(map[string][][]byte),
	}
}

// Register adds a handler for its topic, replacing any previous one.
func (m *MemoryBus) Register(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[h.Topic()] = h
}

// Publish records the message and delivers it to the topic's handler, if
// any. A handler error parks the message on the pending list instead of
// failing the publish, mirroring a broker that holds unacked messages.
func (m *MemoryBus) Publish(ctx context.Context, topic string, body []byte) error {
	m.mu.Lock()
	m.published[topic] = append(m.published[topic], body)
	h := m.handlers[topic]
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	if err := h.Handle(ctx, body); err != nil {
		m.mu.Lock()
		m.pending = append(m.pending, delivery{topic: topic, body: body})
		m.mu.Unlock()
	}
	return nil
}

// Redeliver replays every pending (unacked) message once, keeping the ones
// that fail again. It returns the number of messages that were acknowledged
// this round.
func (m *MemoryBus) Redeliver(ctx context.Context) int {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	acked := 0
	for _, d := range pending {
		m.mu.Lock()
		h := m.handlers[d.topic]
		m.mu.Unlock()
		if h == nil {
			continue
		}
		if err := h.Handle(ctx, d.body); err != nil {
			m.mu.Lock()
			m.pending = append(m.pending, d)
			m.mu.Unlock()
			continue
		}
		acked++
	}
	return acked
}

// Pending returns how many deliveries are waiting for redelivery.
func (m *MemoryBus) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Published returns the bodies published to topic, in order.
func (m *MemoryBus) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.published[topic]))
	copy(out, m.published[topic])
	return out
}
