package queue

// Topic names shared with the other services on the bus. Inbound topics
// carry a version field used for the optimistic-concurrency match.
const (
	TopicTicketCreated      = "ticket:created"
	TopicTicketUpdated      = "ticket:updated"
	TopicPaymentCreated     = "payment:created"
	TopicExpirationComplete = "expiration:complete"
	TopicOrderCreated       = "order:created"
	TopicOrderCanceled      = "order:canceled"
)

// QueueGroup names this service's consumer group. All instances share it so
// each inbound event is handled by exactly one instance.
const QueueGroup = "orders-service"

// TicketEvent is the payload of ticket:created and ticket:updated. Version
// is the version the projection must be at after applying the event.
type TicketEvent struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	UserID  string  `json:"userId"`
	Version int64   `json:"version"`
}

// PaymentCreatedEvent announces that the payment service confirmed payment
// for an order.
type PaymentCreatedEvent struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
}

// ExpirationCompleteEvent announces that an order's reservation window has
// elapsed. Published by the expiration service at the deadline this service
// computed at order creation.
type ExpirationCompleteEvent struct {
	OrderID string `json:"orderId"`
}

// TicketSummary is the ticket snapshot embedded in outbound order events.
type TicketSummary struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	UserID string  `json:"userId"`
}

// OrderEvent is the payload of order:created and order:canceled: a flattened
// snapshot of the order at the version that was just committed. ExpiresAt is
// an ISO-8601 string.
type OrderEvent struct {
	ID        string        `json:"id"`
	Version   int64         `json:"version"`
	UserID    string        `json:"userId"`
	Status    string        `json:"status"`
	ExpiresAt string        `json:"expiresAt"`
	Ticket    TicketSummary `json:"ticket"`
}
