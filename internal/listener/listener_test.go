package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/repository"
)

// fakeTicketStore mimics the version-gated ticket repository in memory.
type fakeTicketStore struct {
	tickets map[string]model.Ticket
}

func newFakeTicketStore(seed ...model.Ticket) *fakeTicketStore {
	s := &fakeTicketStore{tickets: make(map[string]model.Ticket)}
	for _, t := range seed {
		s.tickets[t.ID] = t
	}
	return s
}

func (s *fakeTicketStore) Create(_ context.Context, t *model.Ticket) error {
	if _, exists := s.tickets[t.ID]; exists {
		return fmt.Errorf("duplicate ticket %s", t.ID)
	}
	s.tickets[t.ID] = *t
	return nil
}

func (s *fakeTicketStore) FindByIDAndVersion(_ context.Context, id string, version int64) (*model.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok || t.Version != version {
		return nil, repository.ErrTicketNotFound
	}
	out := t
	return &out, nil
}

func (s *fakeTicketStore) Update(_ context.Context, t *model.Ticket) error {
	cur, ok := s.tickets[t.ID]
	if !ok || cur.Version != t.Version-1 {
		return repository.ErrVersionConflict
	}
	s.tickets[t.ID] = *t
	return nil
}

// fakeOrderStore mimics the version-gated order repository in memory.
type fakeOrderStore struct {
	orders map[string]model.Order
}

func newFakeOrderStore(seed ...model.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]model.Order)}
	for _, o := range seed {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) FindByID(_ context.Context, id string) (*model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	out := o
	if o.Ticket != nil {
		t := *o.Ticket
		out.Ticket = &t
	}
	return &out, nil
}

func (s *fakeOrderStore) Update(_ context.Context, o *model.Order) error {
	cur, ok := s.orders[o.ID]
	if !ok || cur.Version != o.Version-1 {
		return repository.ErrVersionConflict
	}
	saved := *o
	saved.Ticket = cur.Ticket
	s.orders[o.ID] = saved
	return nil
}

func testOrder(id string, status model.Status) model.Order {
	return model.Order{
		ID:        id,
		UserID:    "user-1",
		Status:    status,
		ExpiresAt: time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC),
		TicketID:  "ticket-1",
		Version:   0,
		Ticket: &model.Ticket{
			ID:     "ticket-1",
			Title:  "Test Ticket",
			Price:  20,
			UserID: "seller-1",
		},
	}
}
