package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/orders-service/internal/clock"
	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/publisher"
	"github.com/tickethub/orders-service/internal/queue"
	"github.com/tickethub/orders-service/internal/repository"
)

// memStore is an in-memory stand-in for both repositories, version-gated
// like the real ones.
type memStore struct {
	tickets map[string]model.Ticket
	orders  map[string]model.Order
}

func newMemStore() *memStore {
	return &memStore{
		tickets: make(map[string]model.Ticket),
		orders:  make(map[string]model.Order),
	}
}

func (s *memStore) FindByID(_ context.Context, id string) (*model.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	out := t
	return &out, nil
}

func (s *memStore) Create(_ context.Context, o *model.Order) error {
	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("duplicate order %s", o.ID)
	}
	saved := *o
	s.orders[o.ID] = saved
	return nil
}

func (s *memStore) FindOrder(_ context.Context, id string) (*model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	out := o
	if t, tok := s.tickets[o.TicketID]; tok {
		tt := t
		out.Ticket = &tt
	}
	return &out, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]*model.Order, error) {
	out := make([]*model.Order, 0)
	for id := range s.orders {
		o, _ := s.FindOrder(context.Background(), id)
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Update(_ context.Context, o *model.Order) error {
	cur, ok := s.orders[o.ID]
	if !ok || cur.Version != o.Version-1 {
		return repository.ErrVersionConflict
	}
	saved := *o
	saved.Ticket = nil
	s.orders[o.ID] = saved
	return nil
}

func (s *memStore) ExistsActiveByTicket(_ context.Context, ticketID string) (bool, error) {
	for _, o := range s.orders {
		if o.TicketID == ticketID && o.Status.Reserves() {
			return true, nil
		}
	}
	return false, nil
}

// orderStoreAdapter maps memStore's FindOrder onto the OrderStore interface
// without colliding with the ticket FindByID.
type orderStoreAdapter struct{ *memStore }

func (a orderStoreAdapter) FindByID(ctx context.Context, id string) (*model.Order, error) {
	return a.memStore.FindOrder(ctx, id)
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(store *memStore) (*OrderHandler, *queue.MemoryBus) {
	bus := queue.NewMemoryBus()
	h := NewOrderHandler(
		store,
		orderStoreAdapter{store},
		&publisher.OrderCreated{Bus: bus},
		&publisher.OrderCanceled{Bus: bus},
		clock.NewFixed(testNow),
		15*time.Minute,
	)
	return h, bus
}

func doRequest(h echo.HandlerFunc, method, target, body, userID string, params ...string) *httptest.ResponseRecorder {
	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	_ = h(c)
	return rec
}

func seedTicket(store *memStore) {
	store.tickets["ticket-1"] = model.Ticket{
		ID: "ticket-1", Title: "Test Ticket", Price: 20, UserID: "seller-1", Version: 0,
	}
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("places an order and announces it", func(t *testing.T) {
		store := newMemStore()
		seedTicket(store)
		h, bus := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-a")
		require.Equal(t, http.StatusCreated, rec.Code)

		var got model.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, model.StatusCreated, got.Status)
		assert.Equal(t, int64(0), got.Version)
		assert.Equal(t, "user-a", got.UserID)
		assert.True(t, got.ExpiresAt.Equal(testNow.Add(15*time.Minute)))
		require.NotNil(t, got.Ticket)
		assert.Equal(t, "ticket-1", got.Ticket.ID)

		published := bus.Published(queue.TopicOrderCreated)
		require.Len(t, published, 1)
		var ev queue.OrderEvent
		require.NoError(t, json.Unmarshal(published[0], &ev))
		assert.Equal(t, got.ID, ev.ID)
		assert.Equal(t, "Test Ticket", ev.Ticket.Title)
		assert.Equal(t, testNow.Add(15*time.Minute).Format(time.RFC3339), ev.ExpiresAt)
	})

	t.Run("missing ticketId is a bad request", func(t *testing.T) {
		store := newMemStore()
		h, _ := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{}`, "user-a")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown ticket is not found", func(t *testing.T) {
		store := newMemStore()
		h, _ := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"nope"}`, "user-a")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reserved ticket is a bad request", func(t *testing.T) {
		store := newMemStore()
		seedTicket(store)
		h, _ := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-a")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-b")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no identity is unauthorized", func(t *testing.T) {
		store := newMemStore()
		seedTicket(store)
		h, _ := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOrderHandler_ShowAndList(t *testing.T) {
	store := newMemStore()
	seedTicket(store)
	h, _ := newTestHandler(store)

	rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-a")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	t.Run("owner sees the order", func(t *testing.T) {
		rec := doRequest(h.Show, http.MethodGet, "/api/orders/"+created.ID, "", "user-a", "orderId", created.ID)
		require.Equal(t, http.StatusOK, rec.Code)
		var got model.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, created.ID, got.ID)
		require.NotNil(t, got.Ticket)
		assert.Equal(t, float64(20), got.Ticket.Price)
	})

	t.Run("other user is unauthorized", func(t *testing.T) {
		rec := doRequest(h.Show, http.MethodGet, "/api/orders/"+created.ID, "", "user-b", "orderId", created.ID)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		rec := doRequest(h.Show, http.MethodGet, "/api/orders/not-a-uuid", "", "user-a", "orderId", "not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		missing := "2b0c8f9e-0000-4000-8000-000000000000"
		rec := doRequest(h.Show, http.MethodGet, "/api/orders/"+missing, "", "user-a", "orderId", missing)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list returns only the current user's orders", func(t *testing.T) {
		rec := doRequest(h.List, http.MethodGet, "/api/orders", "", "user-a")
		require.Equal(t, http.StatusOK, rec.Code)
		var got []model.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, created.ID, got[0].ID)

		rec = doRequest(h.List, http.MethodGet, "/api/orders", "", "user-b")
		require.Equal(t, http.StatusOK, rec.Code)
		got = nil
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Empty(t, got)
	})
}

func TestOrderHandler_Cancel(t *testing.T) {
	t.Run("cancel releases the ticket for other users", func(t *testing.T) {
		store := newMemStore()
		seedTicket(store)
		h, bus := newTestHandler(store)

		// User A reserves the ticket; user B is turned away.
		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-a")
		require.Equal(t, http.StatusCreated, rec.Code)
		var created model.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

		rec = doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-b")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		// A cancels; the status flips and the cancellation is announced.
		rec = doRequest(h.Cancel, http.MethodDelete, "/api/orders/"+created.ID, "", "user-a", "orderId", created.ID)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, model.StatusCanceledByUser, store.orders[created.ID].Status)
		assert.Equal(t, int64(1), store.orders[created.ID].Version)
		assert.Len(t, bus.Published(queue.TopicOrderCanceled), 1)

		// The ticket is free again: B succeeds now.
		rec = doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-b")
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("non-owner is unauthorized", func(t *testing.T) {
		store := newMemStore()
		seedTicket(store)
		h, _ := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-a")
		require.Equal(t, http.StatusCreated, rec.Code)
		var created model.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

		rec = doRequest(h.Cancel, http.MethodDelete, "/api/orders/"+created.ID, "", "user-b", "orderId", created.ID)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		store := newMemStore()
		h, _ := newTestHandler(store)

		missing := "2b0c8f9e-0000-4000-8000-000000000000"
		rec := doRequest(h.Cancel, http.MethodDelete, "/api/orders/"+missing, "", "user-a", "orderId", missing)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("terminal order cannot be canceled", func(t *testing.T) {
		store := newMemStore()
		seedTicket(store)
		h, _ := newTestHandler(store)

		rec := doRequest(h.Create, http.MethodPost, "/api/orders", `{"ticketId":"ticket-1"}`, "user-a")
		require.Equal(t, http.StatusCreated, rec.Code)
		var created model.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

		o := store.orders[created.ID]
		o.Status = model.StatusComplete
		store.orders[created.ID] = o

		rec = doRequest(h.Cancel, http.MethodDelete, "/api/orders/"+created.ID, "", "user-a", "orderId", created.ID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
