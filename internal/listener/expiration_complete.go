package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/monitoring"
	"github.com/tickethub/orders-service/internal/publisher"
	"github.com/tickethub/orders-service/internal/queue"
)

// ExpirationComplete cancels unpaid orders when the expiration service fires
// the deadline computed at order creation. The local save commits first,
// then the cancellation is published, and only then is the delivery acked;
// a crash anywhere before the ack replays the whole sequence, so downstream
// consumers must tolerate duplicate order:canceled events.
type ExpirationComplete struct {
	Orders   OrderStore
	Canceled *publisher.OrderCanceled
}

func (l *ExpirationComplete) Topic() string { return queue.TopicExpirationComplete }

func (l *ExpirationComplete) Handle(ctx context.Context, body []byte) error {
	var ev queue.ExpirationCompleteEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal expiration:complete: %w", err)
	}

	order, err := l.Orders.FindByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("order %s for expiration: %w", ev.OrderID, err)
	}

	switch order.Status {
	case model.StatusComplete:
		// Payment beat the timer; expiration never overrides a purchase.
		return nil
	case model.StatusCanceledByUser:
		// Already canceled and announced by the cancellation route.
		return nil
	case model.StatusCanceledExpired:
		// Redelivery after a crash between the save and the ack: the
		// mutation committed but the publish may not have happened, so
		// re-announce before acking.
		return l.Canceled.Publish(ctx, order)
	}

	order.Status = model.StatusCanceledExpired
	order.Version++
	if err := l.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("expire order %s: %w", order.ID, err)
	}
	monitoring.OrderTransition(string(model.StatusCanceledExpired))

	if err := l.Canceled.Publish(ctx, order); err != nil {
		return fmt.Errorf("publish cancellation of order %s: %w", order.ID, err)
	}
	return nil
}
