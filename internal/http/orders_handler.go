package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sunucuics/ICS-APP-BACK/internal/checkout"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

// CheckoutService turns the caller's cart into an order.
type CheckoutService interface {
	Checkout(ctx context.Context, principal domain.Principal, req checkout.Request) (*checkout.Result, error)
}

// OrderSyncer runs one carrier query for one order.
type OrderSyncer interface {
	SyncOrder(ctx context.Context, order *domain.Order) (bool, error)
}

// StatusPublisher announces manual status changes the same way the
// synchronizer announces polled ones.
type StatusPublisher interface {
	StatusChanged(ctx context.Context, order *domain.Order, old domain.OrderStatus) error
}

// OrderReader is the slice of the order repository the user-facing
// endpoints need.
type OrderReader interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	CancelIfPreparing(ctx context.Context, id string) (*domain.Order, error)
}

type OrdersHandler struct {
	checkout         CheckoutService
	orders           OrderReader
	syncer           OrderSyncer
	events           StatusPublisher
	trackingTemplate string
}

func NewOrdersHandler(
	checkoutSvc CheckoutService,
	orders OrderReader,
	orderSyncer OrderSyncer,
	events StatusPublisher,
	trackingTemplate string,
) *OrdersHandler {
	return &OrdersHandler{
		checkout:         checkoutSvc,
		orders:           orders,
		syncer:           orderSyncer,
		events:           events,
		trackingTemplate: trackingTemplate,
	}
}

type CreateOrderRequestDTO struct {
	CheckoutID  string  `json:"checkout_id,omitempty"`
	AddressID   string  `json:"address_id,omitempty"`
	Note        string  `json:"note,omitempty"`
	Simulate    bool    `json:"simulate,omitempty"`
	Discount    float64 `json:"discount,omitempty"`
	ShippingFee float64 `json:"shipping_fee,omitempty"`
}

type MyOrdersResponseDTO struct {
	Active []OrderResponseDTO `json:"active"`
	Past   []OrderResponseDTO `json:"past"`
}

// POST /orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	// An empty body is a plain "checkout my cart".
	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Discount < 0 || req.ShippingFee < 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "discount and shipping_fee must not be negative")
		return
	}

	result, err := h.checkout.Checkout(r.Context(), principal, checkout.Request{
		CheckoutID:  req.CheckoutID,
		AddressID:   req.AddressID,
		Note:        req.Note,
		Simulate:    req.Simulate,
		Discount:    req.Discount,
		ShippingFee: req.ShippingFee,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	respondJSON(w, status, convertOrder(result.Order, h.trackingTemplate))
}

// GET /orders/my
func (h *OrdersHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), principal.UID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := MyOrdersResponseDTO{
		Active: make([]OrderResponseDTO, 0),
		Past:   make([]OrderResponseDTO, 0),
	}
	for i := range orders {
		dto := convertOrder(&orders[i], h.trackingTemplate)
		if orders[i].Status.IsTerminal() {
			resp.Past = append(resp.Past, dto)
		} else {
			resp.Active = append(resp.Active, dto)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order, h.trackingTemplate))
}

// POST /orders/{order_id}/sync-status
func (h *OrdersHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if _, err := h.syncer.SyncOrder(r.Context(), order); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order, h.trackingTemplate))
}

// POST /orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	old := order.Status
	cancelled, err := h.orders.CancelIfPreparing(r.Context(), order.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.events.StatusChanged(r.Context(), cancelled, old); err != nil {
		slog.ErrorContext(r.Context(), "publish order.status_changed",
			"order_id", cancelled.ID, "error", err)
	}
	respondJSON(w, http.StatusOK, convertOrder(cancelled, h.trackingTemplate))
}

// loadVisible fetches the order and hides it (404) from everyone but
// its owner and admins.
func (h *OrdersHandler) loadVisible(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, false
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return nil, false
	}

	order, err := h.orders.FindByID(r.Context(), orderID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	if order.UserID != principal.UID && !principal.Admin {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return nil, false
	}
	return order, true
}
