// Package publisher announces committed order state transitions on the bus.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/queue"
)

// snapshot flattens an order (with its ticket loaded) into the wire payload
// shared by order:created and order:canceled.
func snapshot(o *model.Order) queue.OrderEvent {
	ev := queue.OrderEvent{
		ID:        o.ID,
		Version:   o.Version,
		UserID:    o.UserID,
		Status:    string(o.Status),
		ExpiresAt: o.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if o.Ticket != nil {
		ev.Ticket = queue.TicketSummary{
			ID:     o.Ticket.ID,
			Title:  o.Ticket.Title,
			Price:  o.Ticket.Price,
			UserID: o.Ticket.UserID,
		}
	}
	return ev
}

func publish(ctx context.Context, p queue.Publisher, topic string, o *model.Order) error {
	body, err := json.Marshal(snapshot(o))
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	return p.Publish(ctx, topic, body)
}

// OrderCreated publishes order:created events.
type OrderCreated struct {
	Bus queue.Publisher
}

// Publish announces a freshly committed order. The caller must only invoke
// it after the local save succeeded; a returned error means downstream
// services were not told and the caller must surface the failure.
func (p *OrderCreated) Publish(ctx context.Context, o *model.Order) error {
	return publish(ctx, p.Bus, queue.TopicOrderCreated, o)
}

// OrderCanceled publishes order:canceled events. Consumers must tolerate
// duplicates: a crash between a cancellation's local commit and the ack of
// the event that triggered it replays the whole sequence.
type OrderCanceled struct {
	Bus queue.Publisher
}

func (p *OrderCanceled) Publish(ctx context.Context, o *model.Order) error {
	return publish(ctx, p.Bus, queue.TopicOrderCanceled, o)
}
