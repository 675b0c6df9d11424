package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/queue"
)

// TicketCreated materializes new tickets from the catalog service into the
// local projection.
type TicketCreated struct {
	Tickets TicketStore
}

func (l *TicketCreated) Topic() string { return queue.TopicTicketCreated }

func (l *TicketCreated) Handle(ctx context.Context, body []byte) error {
	var ev queue.TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal ticket:created: %w", err)
	}
	if ev.ID == "" || ev.Title == "" || ev.Price < 0 {
		return fmt.Errorf("invalid ticket:created payload for id %q", ev.ID)
	}

	// Projections always start at version 0 regardless of delivery order;
	// later versions arrive through ticket:updated.
	t := &model.Ticket{
		ID:      ev.ID,
		Title:   ev.Title,
		Price:   ev.Price,
		UserID:  ev.UserID,
		Version: 0,
	}
	if err := l.Tickets.Create(ctx, t); err != nil {
		return fmt.Errorf("create ticket %s: %w", ev.ID, err)
	}
	return nil
}
