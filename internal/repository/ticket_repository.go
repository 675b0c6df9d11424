package repository

import (
	"context"
	"database/sql"

	"github.com/tickethub/orders-service/internal/model"
)

// TicketRepo persists the local projection of tickets owned by the catalog
// service. Rows are only ever written by the inbound ticket listeners; the
// version column starts at 0 and advances by exactly 1 per accepted update.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Create inserts a new ticket projection at version 0. The identity comes
// from the remote catalog service, never from this service.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (id, title, price, user_id, version) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Title, t.Price, t.UserID, t.Version)
	return err
}

// FindByID returns the ticket at its latest committed version, or
// ErrTicketNotFound.
func (r *TicketRepo) FindByID(ctx context.Context, id string) (*model.Ticket, error) {
	const q = `SELECT id, title, price, user_id, version FROM tickets WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// FindByIDAndVersion returns the ticket only if it is currently at the given
// version. The ticket-updated listener uses it to locate the row at
// newVersion-1; an absent row means the event is stale or arrived ahead of
// its predecessor.
func (r *TicketRepo) FindByIDAndVersion(ctx context.Context, id string, version int64) (*model.Ticket, error) {
	const q = `SELECT id, title, price, user_id, version FROM tickets WHERE id = ? AND version = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, version))
}

// Update saves the ticket's fields only if the stored version equals
// t.Version-1, advancing the stored version to t.Version. Zero rows affected
// means another writer got there first and ErrVersionConflict is returned
// with storage unchanged.
func (r *TicketRepo) Update(ctx context.Context, t *model.Ticket) error {
	const q = `UPDATE tickets SET title = ?, price = ?, user_id = ?, version = ? WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, t.Title, t.Price, t.UserID, t.Version, t.ID, t.Version-1)
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

func (r *TicketRepo) scanOne(row *sql.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.Title, &t.Price, &t.UserID, &t.Version)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
