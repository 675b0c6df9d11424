// Package handler implements the HTTP surface of the orders service. All
// routes require an authenticated user; middleware stores the identity under
// "user_id" in the Echo context before any handler runs.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tickethub/orders-service/internal/clock"
	"github.com/tickethub/orders-service/internal/model"
	"github.com/tickethub/orders-service/internal/monitoring"
	"github.com/tickethub/orders-service/internal/publisher"
	"github.com/tickethub/orders-service/internal/repository"
)

// TicketStore is the slice of the ticket repository the handlers need.
type TicketStore interface {
	FindByID(ctx context.Context, id string) (*model.Ticket, error)
}

// OrderStore is the slice of the order repository the handlers need.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	ExistsActiveByTicket(ctx context.Context, ticketID string) (bool, error)
}

// OrderHandler serves the /api/orders routes.
type OrderHandler struct {
	Tickets  TicketStore
	Orders   OrderStore
	Created  *publisher.OrderCreated
	Canceled *publisher.OrderCanceled
	Clock    clock.Clock
	Window   time.Duration // reservation window applied to new orders
}

// NewOrderHandler constructs an OrderHandler. All dependencies must be
// non-nil.
func NewOrderHandler(tickets TicketStore, orders OrderStore, created *publisher.OrderCreated, canceled *publisher.OrderCanceled, clk clock.Clock, window time.Duration) *OrderHandler {
	if tickets == nil || orders == nil || created == nil || canceled == nil || clk == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{
		Tickets:  tickets,
		Orders:   orders,
		Created:  created,
		Canceled: canceled,
		Clock:    clk,
		Window:   window,
	}
}

// getUserID extracts the authenticated user identity placed in the context
// by the JWT middleware.
func getUserID(c echo.Context) (string, error) {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v, nil
	}
	return "", errors.New("no user identity in context")
}

// Create handles POST /api/orders. It reserves the requested ticket for the
// current user: the ticket must exist locally and must not be held by any
// non-canceled order. The reservation check and the insert are not executed
// under a lock; two requests racing on the same instant can both pass, an
// accepted limitation of the point-in-time rule.
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TicketID string `json:"ticketId"`
	}
	if err := c.Bind(&body); err != nil || body.TicketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticketId must be provided"})
	}
	ctx := c.Request().Context()

	ticket, err := h.Tickets.FindByID(ctx, body.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	reserved, err := h.Orders.ExistsActiveByTicket(ctx, ticket.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if reserved {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket is already reserved"})
	}

	order := model.NewOrder(uuid.NewString(), userID, ticket.ID, h.Clock.Now(), h.Window)
	order.Ticket = ticket
	if err := h.Orders.Create(ctx, order); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}
	monitoring.OrderTransition(string(model.StatusCreated))

	// The order is committed locally even if the publish fails; surfacing
	// the failure is deliberate, since downstream services (expiration,
	// payments) were never told about the order.
	if err := h.Created.Publish(ctx, order); err != nil {
		log.Printf("orders-api: order %s committed but order:created publish failed: %v", order.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to publish order"})
	}
	return c.JSON(http.StatusCreated, order)
}

// List handles GET /api/orders and returns the current user's orders with
// their tickets embedded.
func (h *OrderHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.Orders.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, orders)
}

// Show handles GET /api/orders/:orderId.
func (h *OrderHandler) Show(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Orders.FindByID(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if order.UserID != userID {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not your order"})
	}
	return c.JSON(http.StatusOK, order)
}

// Cancel handles DELETE /api/orders/:orderId. The status moves to
// canceled-by-user under the version gate, the cancellation is announced on
// the bus, and 204 is returned. Orders in a terminal state cannot be
// canceled.
func (h *OrderHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	ctx := c.Request().Context()

	order, err := h.Orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if order.UserID != userID {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not your order"})
	}
	if !order.Status.CanTransitionTo(model.StatusCanceledByUser) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order can no longer be canceled"})
	}

	order.Status = model.StatusCanceledByUser
	order.Version++
	if err := h.Orders.Update(ctx, order); err != nil {
		// A version conflict means an event listener won the race; the
		// client can re-read and retry.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel order"})
	}
	monitoring.OrderTransition(string(model.StatusCanceledByUser))

	if err := h.Canceled.Publish(ctx, order); err != nil {
		log.Printf("orders-api: order %s canceled but order:canceled publish failed: %v", order.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to publish cancellation"})
	}
	return c.NoContent(http.StatusNoContent)
}
