package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/fulfillment"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// FulfillmentService runs the label and pickup operations for admins.
type FulfillmentService interface {
	AttachLabel(ctx context.Context, order *domain.Order) (fulfillment.LabelResult, error)
	SchedulePickup(ctx context.Context, order *domain.Order) (fulfillment.PickupResult, error)
}

// AdminOrderStore is the slice of the order repository the admin
// endpoints need.
type AdminOrderStore interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter repository.ListFilter) ([]domain.Order, error)
	UpdateShippingProgress(ctx context.Context, id string, patch repository.ProgressPatch) error
}

type AdminHandler struct {
	orders           AdminOrderStore
	syncer           OrderSyncer
	fulfillment      FulfillmentService
	events           StatusPublisher
	trackingTemplate string
}

func NewAdminHandler(
	orders AdminOrderStore,
	orderSyncer OrderSyncer,
	fulfillmentSvc FulfillmentService,
	events StatusPublisher,
	trackingTemplate string,
) *AdminHandler {
	return &AdminHandler{
		orders:           orders,
		syncer:           orderSyncer,
		fulfillment:      fulfillmentSvc,
		events:           events,
		trackingTemplate: trackingTemplate,
	}
}

type MarkShippedRequestDTO struct {
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// GET /admin/orders?status=&limit=&offset=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := int64(defaultListLimit)
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var offset int64
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid_offset", "offset must not be negative")
			return
		}
		offset = parsed
	}

	orders, err := h.orders.List(r.Context(), repository.ListFilter{
		Status: query.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(orders, h.trackingTemplate))
}

// POST /admin/orders/{order_id}/mark-shipped
func (h *AdminHandler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	var req MarkShippedRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	h.applyManualStatus(w, r, domain.StatusHandedToCarrier, req.TrackingNumber)
}

// POST /admin/orders/{order_id}/mark-delivered
func (h *AdminHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.applyManualStatus(w, r, domain.StatusDelivered, "")
}

func (h *AdminHandler) applyManualStatus(w http.ResponseWriter, r *http.Request, next domain.OrderStatus, trackingNumber string) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	if !order.Status.CanTransitionTo(next) {
		handleServiceError(w, &domain.IllegalTransitionError{From: order.Status, To: next})
		return
	}

	patch := repository.ProgressPatch{Status: &next, TrackingNumber: trackingNumber}
	if err := h.orders.UpdateShippingProgress(r.Context(), order.ID, patch); err != nil {
		handleServiceError(w, err)
		return
	}

	old := order.Status
	order.Status = next
	if trackingNumber != "" {
		order.Shipping.TrackingNumber = trackingNumber
	}

	if err := h.events.StatusChanged(r.Context(), order, old); err != nil {
		slog.ErrorContext(r.Context(), "publish order.status_changed",
			"order_id", order.ID, "error", err)
	}
	respondJSON(w, http.StatusOK, convertOrder(order, h.trackingTemplate))
}

// POST /admin/orders/{order_id}/force-sync
func (h *AdminHandler) ForceSync(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	if _, err := h.syncer.SyncOrder(r.Context(), order); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order, h.trackingTemplate))
}

// POST /admin/orders/{order_id}/fetch-label
func (h *AdminHandler) FetchLabel(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	result, err := h.fulfillment.AttachLabel(r.Context(), order)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !result.Ok {
		respondError(w, http.StatusUnprocessableEntity, "label_skipped", result.Detail)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// POST /admin/orders/{order_id}/request-pickup
func (h *AdminHandler) RequestPickup(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	result, err := h.fulfillment.SchedulePickup(r.Context(), order)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !result.Ok {
		respondError(w, http.StatusUnprocessableEntity, "pickup_skipped", result.Detail)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
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
	return order, true
}
