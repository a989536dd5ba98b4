package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sunucuics/ICS-APP-BACK/internal/aras"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// StatusApplier folds a pushed carrier report into an order.
type StatusApplier interface {
	ApplyCarrierStatus(ctx context.Context, order *domain.Order, res *aras.StatusResult) (bool, error)
}

// OrderFinder resolves a shipment reference to an order.
type OrderFinder interface {
	FindByTrackingRef(ctx context.Context, ref string) (*domain.Order, error)
}

// WebhookHandler receives carrier push notifications. Payload field
// names vary between carrier panels, so each value is resolved through
// a list of accepted aliases.
type WebhookHandler struct {
	orders OrderFinder
	syncer StatusApplier
	secret string
}

func NewWebhookHandler(orders OrderFinder, applier StatusApplier, secret string) *WebhookHandler {
	return &WebhookHandler{orders: orders, syncer: applier, secret: secret}
}

func (h *WebhookHandler) enabled() bool {
	return h.secret != ""
}

var (
	webhookRefKeys      = []string{"tracking_number", "trackingNumber", "barcode", "integration_code", "integrationCode", "order_id", "orderId", "shipment_id"}
	webhookStatusKeys   = []string{"status", "status_text", "statusText", "description", "state"}
	webhookTrackingKeys = []string{"tracking_number", "trackingNumber", "barcode"}
)

// POST /shipping/{carrier}
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "carrier") != domain.CarrierAras {
		respondError(w, http.StatusNotFound, "unknown_carrier", "unknown carrier")
		return
	}

	secret := r.Header.Get("X-Webhook-Secret")
	if secret == "" {
		secret = r.URL.Query().Get("secret")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ref := firstStringValue(payload, webhookRefKeys)
	if ref == "" {
		respondError(w, http.StatusBadRequest, "missing_reference", "no shipment reference in payload")
		return
	}

	order, err := h.orders.FindByTrackingRef(r.Context(), ref)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no order for this shipment")
			return
		}
		handleServiceError(w, err)
		return
	}
	// Simulated orders have no carrier side; whoever is pushing at us
	// got the reference from somewhere else.
	if order.Shipping.Simulated {
		respondError(w, http.StatusNotFound, "not_found", "no order for this shipment")
		return
	}

	report := &aras.StatusResult{
		StatusText:     firstStringValue(payload, webhookStatusKeys),
		Delivered:      boolishValue(payload, "delivered") || boolishValue(payload, "is_delivered"),
		TrackingNumber: firstStringValue(payload, webhookTrackingKeys),
	}

	if _, err := h.syncer.ApplyCarrierStatus(r.Context(), order, report); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"status": order.Status.String(),
	})
}

func firstStringValue(payload map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// boolishValue accepts the spellings carrier panels actually send:
// true, "true", "1", 1.
func boolishValue(payload map[string]interface{}, key string) bool {
	switch v := payload[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "yes"
	case float64:
		return v == 1
	default:
		return false
	}
}
