package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tickethub/orders-service/internal/model"
)

// OrderRepo persists orders and answers the ticket-reservation query. Reads
// join the tickets projection so callers always receive the order together
// with its ticket snapshot.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `o.id, o.user_id, o.status, o.expires_at, o.ticket_id, o.version,
                      t.id, t.title, t.price, t.user_id, t.version`

// Create inserts a new order at version 0.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (id, user_id, status, expires_at, ticket_id, version) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, o.ID, o.UserID, o.Status, o.ExpiresAt.UTC(), o.TicketID, o.Version)
	return err
}

// FindByID returns the order with its ticket embedded, or ErrOrderNotFound.
func (r *OrderRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + `
               FROM orders o
               JOIN tickets t ON t.id = o.ticket_id
               WHERE o.id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns all orders owned by the given user, newest first, each
// with its ticket embedded. An empty slice is returned when none exist.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	const q = `SELECT ` + orderColumns + `
               FROM orders o
               JOIN tickets t ON t.id = o.ticket_id
               WHERE o.user_id = ?
               ORDER BY o.expires_at DESC, o.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update saves the order's fields only if the stored version equals
// o.Version-1 (the version the caller actually read, plus its own
// increment). Zero rows affected yields ErrVersionConflict and leaves
// storage untouched.
func (r *OrderRepo) Update(ctx context.Context, o *model.Order) error {
	const q = `UPDATE orders SET status = ?, expires_at = ?, version = ? WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, o.Status, o.ExpiresAt.UTC(), o.Version, o.ID, o.Version-1)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ExistsActiveByTicket reports whether any order currently reserves the
// given ticket, i.e. references it with a status in {created,
// awaiting-payment, complete}. This is a point-in-time check, not a lock.
func (r *OrderRepo) ExistsActiveByTicket(ctx context.Context, ticketID string) (bool, error) {
	const q = `SELECT EXISTS (
                   SELECT 1 FROM orders
                   WHERE ticket_id = ? AND status IN (?, ?, ?)
               )`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, ticketID,
		model.StatusCreated, model.StatusAwaitingPayment, model.StatusComplete).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*model.Order, error) {
	var o model.Order
	var t model.Ticket
	var expiresAt time.Time
	err := s.Scan(
		&o.ID, &o.UserID, &o.Status, &expiresAt, &o.TicketID, &o.Version,
		&t.ID, &t.Title, &t.Price, &t.UserID, &t.Version,
	)
	if err != nil {
		return nil, err
	}
	o.ExpiresAt = expiresAt.UTC()
	o.Ticket = &t
	return &o, nil
}
