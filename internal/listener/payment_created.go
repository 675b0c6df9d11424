package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/monitoring"
	"github.com/tickethub/orders-service/internal/queue"
)

// PaymentCreated marks orders complete once the payment service confirms
// payment.
type PaymentCreated struct {
	Orders OrderStore
}

func (l *PaymentCreated) Topic() string { return queue.TopicPaymentCreated }

func (l *PaymentCreated) Handle(ctx context.Context, body []byte) error {
	var ev queue.PaymentCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal payment:created: %w", err)
	}

	// A payment can only reference an order that already exists; absence is
	// a hard error and the message stays queued for redelivery or operator
	// intervention.
	order, err := l.Orders.FindByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("order %s for payment %s: %w", ev.OrderID, ev.ID, err)
	}

	if order.Status == model.StatusComplete {
		// Duplicate delivery; the work is already done.
		return nil
	}
	if !order.Status.CanTransitionTo(model.StatusComplete) {
		// A late payment must not resurrect a canceled order. Redelivery
		// can never succeed against a terminal state, so acknowledge and
		// leave the anomaly to reconciliation.
		log.Printf("payment-created: payment %s arrived for order %s in status %s; ignoring",
			ev.ID, order.ID, order.Status)
		return nil
	}

	order.Status = model.StatusComplete
	order.Version++
	if err := l.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("complete order %s: %w", order.ID, err)
	}
	monitoring.OrderTransition(string(model.StatusComplete))
	return nil
}
