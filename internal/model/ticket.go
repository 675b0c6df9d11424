// Package model defines the order aggregate, the local ticket projection
// and the status state machine shared by handlers and listeners.
package model

// Ticket is a local read-model of a ticket owned by the catalog service.
// It is created and refreshed exclusively by inbound ticket events; the
// identity is assigned remotely and the version advances by exactly 1 per
// accepted update. Tickets are never deleted locally.
type Ticket struct {
	ID      string  `json:"id"`      // tickets.id (remote identity)
	Title   string  `json:"title"`   // tickets.title
	Price   float64 `json:"price"`   // tickets.price
	UserID  string  `json:"userId"`  // tickets.user_id (seller)
	Version int64   `json:"version"` // tickets.version
}
