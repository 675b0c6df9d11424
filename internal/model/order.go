package model

import "time"

// Status enumerates the lifecycle states of an order.
type Status string

const (
	// StatusCreated means the order was just placed and is awaiting
	// payment within its expiration window.
	StatusCreated Status = "created"
	// StatusAwaitingPayment means the payment process has started.
	StatusAwaitingPayment Status = "awaiting-payment"
	// StatusComplete means payment was confirmed. Terminal.
	StatusComplete Status = "complete"
	// StatusCanceledByUser means the user canceled before completion. Terminal.
	StatusCanceledByUser Status = "canceled-by-user"
	// StatusCanceledExpired means the expiration window elapsed unpaid. Terminal.
	StatusCanceledExpired Status = "canceled-expired"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusAwaitingPayment, StatusComplete,
		StatusCanceledByUser, StatusCanceledExpired:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions. A complete
// order can never be canceled and a canceled order can never complete.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusCanceledByUser, StatusCanceledExpired:
		return true
	}
	return false
}

// Reserves reports whether an order in this status holds a claim on its
// ticket. Canceled orders of either kind release the ticket.
func (s Status) Reserves() bool {
	switch s {
	case StatusCreated, StatusAwaitingPayment, StatusComplete:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Terminal states reject everything.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	switch s {
	case StatusCreated:
		return next != StatusCreated
	case StatusAwaitingPayment:
		return next == StatusComplete || next == StatusCanceledByUser || next == StatusCanceledExpired
	}
	return false
}

// Order is a purchase order placed by a user against a single ticket.
//
// Version starts at 0 and increments by exactly 1 per accepted mutation;
// every save is gated on the version the caller read (see repository).
type Order struct {
	ID        string    `json:"id"`        // orders.id (UUID, generated locally)
	UserID    string    `json:"userId"`    // orders.user_id
	Status    Status    `json:"status"`    // orders.status
	ExpiresAt time.Time `json:"expiresAt"` // orders.expires_at (UTC)
	TicketID  string    `json:"-"`         // orders.ticket_id
	Version   int64     `json:"version"`   // orders.version
	Ticket    *Ticket   `json:"ticket,omitempty"`
}

// NewOrder builds an order in the created state for the given ticket,
// expiring after the supplied reservation window.
func NewOrder(id, userID, ticketID string, now time.Time, window time.Duration) *Order {
	return &Order{
		ID:        id,
		UserID:    userID,
		Status:    StatusCreated,
		ExpiresAt: now.UTC().Add(window),
		TicketID:  ticketID,
		Version:   0,
	}
}
