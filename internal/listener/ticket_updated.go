package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tickethub/orders-service/internal/queue"
)

// TicketUpdated refreshes the local ticket projection. The event carries the
// version the projection must end up at; the row is located at exactly
// version-1 so updates apply in causal order no matter how the bus delivers
// them.
type TicketUpdated struct {
	Tickets TicketStore
}

func (l *TicketUpdated) Topic() string { return queue.TopicTicketUpdated }

func (l *TicketUpdated) Handle(ctx context.Context, body []byte) error {
	var ev queue.TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal ticket:updated: %w", err)
	}

	// No row at version-1 means this event is either ahead of its
	// predecessor or already applied. Declining to ack parks it for
	// redelivery; once the predecessor lands, the retry goes through.
	t, err := l.Tickets.FindByIDAndVersion(ctx, ev.ID, ev.Version-1)
	if err != nil {
		return fmt.Errorf("ticket %s at version %d: %w", ev.ID, ev.Version-1, err)
	}

	t.Title = ev.Title
	t.Price = ev.Price
	if ev.UserID != "" {
		t.UserID = ev.UserID
	}
	t.Version = ev.Version
	if err := l.Tickets.Update(ctx, t); err != nil {
		return fmt.Errorf("update ticket %s to version %d: %w", ev.ID, ev.Version, err)
	}
	return nil
}
