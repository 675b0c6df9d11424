// Package listener contains the inbound event handlers that apply remote
// state changes to the local projection and the order aggregate.
//
// Every handler follows the same contract: deserialize the payload, resolve
// the target entity, apply a version-gated mutation, and acknowledge (return
// nil) only once the mutation durably committed or a deliberate no-op was
// decided. Returning an error leaves the message queued for redelivery,
// which is how out-of-order and racing deliveries eventually converge.
package listener

import (
	"context"

	"github.com/tickethub/orders-service/internal/model"
)

// TicketStore is the slice of the ticket repository the listeners need.
type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	FindByIDAndVersion(ctx context.Context, id string, version int64) (*model.Ticket, error)
	Update(ctx context.Context, t *model.Ticket) error
}

// OrderStore is the slice of the order repository the listeners need.
// FindByID returns the order with its ticket embedded.
type OrderStore interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
	Update(ctx context.Context, o *model.Order) error
}
