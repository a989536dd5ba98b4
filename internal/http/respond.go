package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sunucuics/ICS-APP-BACK/internal/aras"
	"github.com/sunucuics/ICS-APP-BACK/internal/cartresolver"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
	"github.com/sunucuics/ICS-APP-BACK/internal/syncer"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError translates the service layer sentinels into HTTP
// statuses. Anything unrecognized is a 500.
func handleServiceError(w http.ResponseWriter, err error) {
	var illegal *domain.IllegalTransitionError

	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, repository.ErrNotCancellable):
		respondError(w, http.StatusConflict, "not_cancellable", "order can only be cancelled while preparing")
	case errors.Is(err, cartresolver.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty, nothing to checkout")
	case errors.Is(err, syncer.ErrNotRegistered):
		respondError(w, http.StatusUnprocessableEntity, "not_registered", "order is not registered with the carrier")
	case errors.Is(err, aras.ErrShipmentNotFound):
		respondError(w, http.StatusNotFound, "shipment_not_found", "shipment not found at carrier")
	case errors.Is(err, aras.ErrLabelUnavailable):
		respondError(w, http.StatusNotFound, "label_unavailable", "carrier has no label for this shipment yet")
	case errors.Is(err, aras.ErrCarrierUnavailable):
		respondError(w, http.StatusBadGateway, "carrier_unavailable", "carrier is unreachable, try again later")
	case errors.Is(err, aras.ErrOrderRejected):
		respondError(w, http.StatusBadGateway, "carrier_rejected", err.Error())
	case errors.As(err, &illegal):
		respondError(w, http.StatusConflict, "illegal_transition", illegal.Error())
	default:
		slog.Error("unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
