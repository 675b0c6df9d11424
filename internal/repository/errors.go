// Package repository implements the version-gated persistence layer for
// orders and the local ticket projection. Every write is a compare-and-swap
// on the row version, so concurrent writers (a request handler and an event
// listener racing on the same row) surface as ErrVersionConflict instead of
// silently clobbering each other.
package repository

import "errors"

// ErrTicketNotFound is returned when no ticket row matches the lookup.
// Handlers translate this into HTTP 404; listeners decline to acknowledge.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrOrderNotFound is returned when no order row matches the lookup.
var ErrOrderNotFound = errors.New("order not found")

// ErrVersionConflict is returned when a save's expected previous version no
// longer matches storage (zero rows affected by the CAS update). The row is
// left unchanged; the caller decides whether to retry, ignore or surface it.
var ErrVersionConflict = errors.New("version conflict")
