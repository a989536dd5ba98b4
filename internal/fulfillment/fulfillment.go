// Package fulfillment runs the shipping chores that follow order
// creation: pulling the barcode label from the carrier and booking the
// courier pickup. Both are conveniences layered on top of an already
// created order, so nothing here is allowed to fail a checkout.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunucuics/ICS-APP-BACK/internal/aras"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

// Carrier is the slice of the shipping client this package needs.
type Carrier interface {
	FetchLabel(ctx context.Context, integrationCode string) ([]byte, error)
	RequestPickup(ctx context.Context, pickup aras.PickupRequest) (string, error)
}

// OrderWriter persists the fulfillment artifacts onto the order.
type OrderWriter interface {
	SetLabelURL(ctx context.Context, id, url string) error
	SetPickupReference(ctx context.Context, id, ref string) error
}

// LabelStore persists a label PDF and returns a URL a human can open.
type LabelStore interface {
	SaveLabel(ctx context.Context, orderID string, pdf []byte) (string, error)
}

// LabelResult reports what AttachLabel did. Ok false with a Detail is a
// normal outcome (unregistered order, carrier has no label yet), not an
// error; real failures come back as errors.
type LabelResult struct {
	Ok     bool   `json:"ok"`
	URL    string `json:"url,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// PickupResult reports what SchedulePickup did.
type PickupResult struct {
	Ok        bool   `json:"ok"`
	Reference string `json:"reference,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Options gate the automatic post-create run.
type Options struct {
	AutoLabel  bool
	AutoPickup bool
	// PickupDaysOffset shifts the requested pickup date from today.
	PickupDaysOffset int
	// PickupTimeWindow is the courier visit window, "13:00-17:00" style.
	PickupTimeWindow string
}

type Service struct {
	carrier Carrier
	labels  LabelStore
	orders  OrderWriter
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(carrier Carrier, labels LabelStore, orders OrderWriter, opts Options, logger *slog.Logger) *Service {
	return &Service{
		carrier: carrier,
		labels:  labels,
		orders:  orders,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// AttachLabel fetches the order's barcode label from the carrier,
// stores the PDF and writes the resulting URL onto the order.
func (s *Service) AttachLabel(ctx context.Context, order *domain.Order) (LabelResult, error) {
	if detail, ok := s.eligible(order); !ok {
		return LabelResult{Detail: detail}, nil
	}
	if s.labels == nil {
		return LabelResult{Detail: "label storage is not configured"}, nil
	}

	pdf, err := s.carrier.FetchLabel(ctx, order.Shipping.IntegrationCode)
	if err != nil {
		return LabelResult{}, fmt.Errorf("fetch label: %w", err)
	}

	url, err := s.labels.SaveLabel(ctx, order.ID, pdf)
	if err != nil {
		return LabelResult{}, fmt.Errorf("store label: %w", err)
	}

	if err := s.orders.SetLabelURL(ctx, order.ID, url); err != nil {
		return LabelResult{}, fmt.Errorf("persist label url: %w", err)
	}
	order.Shipping.LabelURL = url

	s.logger.InfoContext(ctx, "label attached", "order_id", order.ID, "url", url)
	return LabelResult{Ok: true, URL: url}, nil
}

// SchedulePickup books a courier visit for the order and writes the
// carrier's reference onto it.
func (s *Service) SchedulePickup(ctx context.Context, order *domain.Order) (PickupResult, error) {
	if detail, ok := s.eligible(order); !ok {
		return PickupResult{Detail: detail}, nil
	}

	pickup := aras.PickupRequest{
		IntegrationCode: order.Shipping.IntegrationCode,
		Date:            s.now().AddDate(0, 0, s.opts.PickupDaysOffset),
		TimeWindow:      s.opts.PickupTimeWindow,
	}
	ref, err := s.carrier.RequestPickup(ctx, pickup)
	if err != nil {
		return PickupResult{}, fmt.Errorf("request pickup: %w", err)
	}

	if err := s.orders.SetPickupReference(ctx, order.ID, ref); err != nil {
		return PickupResult{}, fmt.Errorf("persist pickup reference: %w", err)
	}
	order.Shipping.PickupReference = ref

	s.logger.InfoContext(ctx, "pickup scheduled",
		"order_id", order.ID, "reference", ref, "date", pickup.Date.Format("2006-01-02"))
	return PickupResult{Ok: true, Reference: ref}, nil
}

// AutoAfterCreate runs the flag-gated automation right after checkout.
// Every failure is a log line; the order is already placed and a label
// can always be fetched again by hand.
func (s *Service) AutoAfterCreate(ctx context.Context, order *domain.Order) {
	if !s.opts.AutoLabel && !s.opts.AutoPickup {
		return
	}
	if _, ok := s.eligible(order); !ok {
		return
	}

	if s.opts.AutoLabel {
		if result, err := s.AttachLabel(ctx, order); err != nil {
			s.logger.WarnContext(ctx, "auto label failed", "order_id", order.ID, "error", err)
		} else if !result.Ok {
			s.logger.InfoContext(ctx, "auto label skipped", "order_id", order.ID, "detail", result.Detail)
		}
	}

	if s.opts.AutoPickup {
		if result, err := s.SchedulePickup(ctx, order); err != nil {
			s.logger.WarnContext(ctx, "auto pickup failed", "order_id", order.ID, "error", err)
		} else if !result.Ok {
			s.logger.InfoContext(ctx, "auto pickup skipped", "order_id", order.ID, "detail", result.Detail)
		}
	}
}

// eligible filters out orders the carrier knows nothing about.
func (s *Service) eligible(order *domain.Order) (string, bool) {
	if order.Shipping.Simulated {
		return "order is simulated", false
	}
	if !order.Shipping.Registered() {
		return "order is not registered with the carrier", false
	}
	return "", true
}
