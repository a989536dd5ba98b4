// Package syncer keeps open orders aligned with what the carrier says
// about them. A background loop polls every open, carrier-registered
// order on a fixed interval; the same per-order step backs the manual
// sync endpoints.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunucuics/ICS-APP-BACK/internal/aras"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// ErrNotRegistered means the order has no carrier identity to query.
var ErrNotRegistered = errors.New("order is not registered with the carrier")

// Carrier is the slice of the shipping client the syncer needs.
type Carrier interface {
	QueryStatus(ctx context.Context, integrationCode string) (*aras.StatusResult, error)
}

// OrderStore is the slice of the order repository the syncer needs.
type OrderStore interface {
	ListOpenForSync(ctx context.Context) ([]domain.Order, error)
	UpdateShippingProgress(ctx context.Context, id string, patch repository.ProgressPatch) error
}

// Publisher announces status transitions downstream.
type Publisher interface {
	StatusChanged(ctx context.Context, order *domain.Order, old domain.OrderStatus) error
}

// Syncer owns its polling goroutine: Start launches it, Stop cancels
// and waits for the in-flight pass to finish.
type Syncer struct {
	orders   OrderStore
	carrier  Carrier
	events   Publisher
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(orders OrderStore, carrier Carrier, events Publisher, interval time.Duration, logger *slog.Logger) *Syncer {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Syncer{
		orders:   orders,
		carrier:  carrier,
		events:   events,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the polling loop. Calling it twice is a bug; the
// second loop would double-poll the carrier.
func (s *Syncer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	s.logger.Info("status syncer started", "interval", s.interval.String())
}

// Stop cancels the loop and blocks until it has drained. Safe to call
// without a prior Start.
func (s *Syncer) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("status syncer stopped")
}

func (s *Syncer) run(ctx context.Context) {
	defer close(s.done)

	// First pass right away so a restart does not wait a full interval
	// to catch up.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// runOnce walks every open order once. A failure on one order never
// blocks the rest of the batch.
func (s *Syncer) runOnce(ctx context.Context) {
	orders, err := s.orders.ListOpenForSync(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list open orders for sync", "error", err)
		return
	}

	var advanced int
	for i := range orders {
		if ctx.Err() != nil {
			return
		}
		order := &orders[i]
		changed, err := s.SyncOrder(ctx, order)
		if err != nil {
			if errors.Is(err, aras.ErrShipmentNotFound) {
				// Registered on our side but not visible at the carrier
				// yet. Normal for fresh orders.
				s.logger.DebugContext(ctx, "shipment not visible yet", "order_id", order.ID)
			} else {
				s.logger.WarnContext(ctx, "sync order", "order_id", order.ID, "error", err)
			}
			continue
		}
		if changed {
			advanced++
		}
	}

	if advanced > 0 {
		s.logger.InfoContext(ctx, "status sync pass", "orders", len(orders), "advanced", advanced)
	}
}

// SyncOrder queries the carrier for one order and applies whatever
// moved. It returns true when the order status advanced.
func (s *Syncer) SyncOrder(ctx context.Context, order *domain.Order) (bool, error) {
	if order.Shipping.Simulated {
		return false, nil
	}
	ref := order.Shipping.IntegrationCode
	if ref == "" {
		ref = order.Shipping.TrackingNumber
	}
	if ref == "" {
		return false, ErrNotRegistered
	}

	res, err := s.carrier.QueryStatus(ctx, ref)
	if err != nil {
		return false, err
	}
	return s.ApplyCarrierStatus(ctx, order, res)
}

// ApplyCarrierStatus folds one carrier report into the order: the
// mapped status (only forward), the raw carrier status text and a
// late-arriving tracking number. The webhook feeds pushed reports in
// here, the polling loop feeds queried ones. It returns true when the
// order status advanced. The order is mutated to match what was
// persisted.
func (s *Syncer) ApplyCarrierStatus(ctx context.Context, order *domain.Order, res *aras.StatusResult) (bool, error) {
	next := aras.Classify(res.StatusText, res.Delivered, order.Status)

	var patch repository.ProgressPatch
	statusChanged := next != order.Status
	if statusChanged {
		patch.Status = &next
	}
	if res.StatusText != "" && res.StatusText != order.Shipping.LastCarrierStatus {
		patch.CarrierStatus = res.StatusText
	}
	if res.TrackingNumber != "" && res.TrackingNumber != order.Shipping.TrackingNumber {
		patch.TrackingNumber = res.TrackingNumber
	}
	if patch.Status == nil && patch.CarrierStatus == "" && patch.TrackingNumber == "" {
		return false, nil
	}

	if err := s.orders.UpdateShippingProgress(ctx, order.ID, patch); err != nil {
		return false, fmt.Errorf("persist shipping progress: %w", err)
	}

	old := order.Status
	if statusChanged {
		order.Status = next
	}
	if patch.CarrierStatus != "" {
		order.Shipping.LastCarrierStatus = patch.CarrierStatus
	}
	if patch.TrackingNumber != "" {
		order.Shipping.TrackingNumber = patch.TrackingNumber
	}

	if statusChanged {
		s.logger.InfoContext(ctx, "order status advanced",
			"order_id", order.ID, "from", old.String(), "to", next.String())
		if err := s.events.StatusChanged(ctx, order, old); err != nil {
			s.logger.ErrorContext(ctx, "publish order.status_changed", "order_id", order.ID, "error", err)
		}
	}
	return statusChanged, nil
}
