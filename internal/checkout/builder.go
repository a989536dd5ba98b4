package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sunucuics/ICS-APP-BACK/internal/address"
	"github.com/sunucuics/ICS-APP-BACK/internal/aras"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// CartSource yields the lines to turn into an order and clears them
// once the order exists.
type CartSource interface {
	Resolve(ctx context.Context, userID string) ([]domain.CartItem, error)
	Clear(ctx context.Context, userID string) error
}

// CatalogEnricher backfills missing line fields from the product catalog.
type CatalogEnricher interface {
	Enrich(ctx context.Context, items []domain.CartItem) []domain.CartItem
}

// AddressSource picks the delivery address for the order.
type AddressSource interface {
	Resolve(ctx context.Context, userID, addressID string) address.Resolution
}

// ShipmentRegistrar registers the order with the carrier.
type ShipmentRegistrar interface {
	SetOrder(ctx context.Context, order aras.ShipmentOrder) (*aras.SetOrderResult, error)
}

// PaymentCharger opens a payment intent for the order total.
type PaymentCharger interface {
	CreateIntent(ctx context.Context, order *domain.Order) (domain.Payment, error)
}

// EventPublisher announces the new order downstream.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
}

// Fulfiller runs the post-create automation (label, pickup). It must
// never fail the checkout, so it reports nothing back.
type Fulfiller interface {
	AutoAfterCreate(ctx context.Context, order *domain.Order)
}

// Request carries the client's checkout input. CheckoutID is the
// idempotency key; repeating it returns the order it created the first
// time instead of a new one.
type Request struct {
	CheckoutID  string
	AddressID   string
	Note        string
	Simulate    bool
	Discount    float64
	ShippingFee float64
}

// Result wraps the order together with a replay marker so the HTTP
// layer can answer 200 instead of 201 for idempotent repeats.
type Result struct {
	Order  *domain.Order
	Reused bool
}

// Service assembles orders out of carts. Cart resolution and the insert
// are the only steps allowed to fail a checkout; carrier registration,
// payment, events and cart cleanup all degrade to log lines.
type Service struct {
	orders    repository.OrderRepository
	carts     CartSource
	enricher  CatalogEnricher
	addresses AddressSource
	carrier   ShipmentRegistrar
	charger   PaymentCharger
	events    EventPublisher
	fulfiller Fulfiller
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(
	orders repository.OrderRepository,
	carts CartSource,
	enricher CatalogEnricher,
	addresses AddressSource,
	carrier ShipmentRegistrar,
	charger PaymentCharger,
	events EventPublisher,
	fulfiller Fulfiller,
	logger *slog.Logger,
) *Service {
	return &Service{
		orders:    orders,
		carts:     carts,
		enricher:  enricher,
		addresses: addresses,
		carrier:   carrier,
		charger:   charger,
		events:    events,
		fulfiller: fulfiller,
		logger:    logger,
		tracer:    otel.Tracer("checkout"),
	}
}

// Checkout turns the caller's cart into an order. Repeats with the same
// CheckoutID return the already created order with Reused set.
func (s *Service) Checkout(ctx context.Context, principal domain.Principal, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout",
		trace.WithAttributes(
			attribute.String("checkout.id", req.CheckoutID),
			attribute.Bool("checkout.simulate", req.Simulate),
		))
	defer span.End()

	if req.CheckoutID != "" {
		existing, err := s.orders.FindByUserAndCheckoutID(ctx, principal.UID, req.CheckoutID)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "checkout replayed",
				"order_id", existing.ID, "checkout_id", req.CheckoutID)
			return &Result{Order: existing, Reused: true}, nil
		case !errors.Is(err, repository.ErrOrderNotFound):
			return nil, fmt.Errorf("checkout replay lookup: %w", err)
		}
	}

	items, err := s.carts.Resolve(ctx, principal.UID)
	if err != nil {
		return nil, err
	}
	items = s.enricher.Enrich(ctx, items)

	resolution := s.addresses.Resolve(ctx, principal.UID, req.AddressID)
	if resolution.Missing {
		s.logger.WarnContext(ctx, "checkout without address", "user_id", principal.UID)
	}

	order := s.buildOrder(principal, req, coerceItems(items), resolution)

	if err := s.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateCheckout) {
			existing, ferr := s.orders.FindByUserAndCheckoutID(ctx, principal.UID, req.CheckoutID)
			if ferr == nil {
				s.logger.InfoContext(ctx, "checkout raced, reusing winner",
					"order_id", existing.ID, "checkout_id", req.CheckoutID)
				return &Result{Order: existing, Reused: true}, nil
			}
			return nil, fmt.Errorf("checkout race lookup: %w", ferr)
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if !req.Simulate {
		s.registerShipment(ctx, order)
	}
	s.collectPayment(ctx, order)

	if err := s.events.OrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "publish order.created", "order_id", order.ID, "error", err)
	}
	if err := s.carts.Clear(ctx, principal.UID); err != nil {
		s.logger.WarnContext(ctx, "clear cart after checkout", "user_id", principal.UID, "error", err)
	}

	s.fulfiller.AutoAfterCreate(ctx, order)

	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"user_id", principal.UID,
		"grand_total", order.Totals.GrandTotal,
		"simulated", req.Simulate)
	return &Result{Order: order}, nil
}

func (s *Service) buildOrder(principal domain.Principal, req Request, items []domain.OrderItem, resolution address.Resolution) *domain.Order {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:             uuid.NewString(),
		UserID:         principal.UID,
		CheckoutID:     req.CheckoutID,
		Items:          items,
		Totals:         calcTotals(items, req.Discount, req.ShippingFee, 0),
		Status:         domain.StatusPreparing,
		Address:        resolution.Address,
		AddressMissing: resolution.Missing,
		Customer: domain.Customer{
			Name:  principal.Name,
			Phone: principal.Phone,
			Email: principal.Email,
		},
		Shipping: domain.Shipping{
			Provider:  domain.CarrierAras,
			Simulated: req.Simulate,
		},
		Note:      req.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The order ID doubles as the carrier integration code, so webhook
	// and polling lookups work before a tracking number exists.
	if !req.Simulate {
		order.Shipping.IntegrationCode = order.ID
	}
	return order
}

// registerShipment pushes the order to the carrier. Failure leaves the
// order in preparing with no tracking number; the admin endpoints can
// retry, and the status synchronizer skips unregistered orders.
func (s *Service) registerShipment(ctx context.Context, order *domain.Order) {
	res, err := s.carrier.SetOrder(ctx, shipmentFor(order))
	if err != nil {
		s.logger.ErrorContext(ctx, "carrier registration failed",
			"order_id", order.ID, "error", err)
		order.Shipping.IntegrationCode = ""
		if uerr := s.orders.ClearCarrierRegistration(ctx, order.ID); uerr != nil {
			s.logger.WarnContext(ctx, "clear carrier registration", "order_id", order.ID, "error", uerr)
		}
		return
	}
	order.Shipping.TrackingNumber = res.TrackingNumber
	if err := s.orders.SetTracking(ctx, order.ID, res.TrackingNumber); err != nil {
		s.logger.ErrorContext(ctx, "persist tracking number",
			"order_id", order.ID, "error", err)
	}
}

// collectPayment opens the payment intent. The snapshot is stored even
// when the provider errors, so support can see the failed attempt.
func (s *Service) collectPayment(ctx context.Context, order *domain.Order) {
	payment, err := s.charger.CreateIntent(ctx, order)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment intent failed", "order_id", order.ID, "error", err)
	}
	order.Payment = payment
	if payment.Provider == "" {
		return
	}
	if err := s.orders.SetPayment(ctx, order.ID, payment); err != nil {
		s.logger.ErrorContext(ctx, "persist payment snapshot", "order_id", order.ID, "error", err)
	}
}

func shipmentFor(order *domain.Order) aras.ShipmentOrder {
	addr := order.Address
	name := addr.FullName
	if name == "" {
		name = order.Customer.Name
	}
	phone := addr.Phone
	if phone == "" {
		phone = order.Customer.Phone
	}
	return aras.ShipmentOrder{
		IntegrationCode: order.Shipping.IntegrationCode,
		ReceiverName:    name,
		ReceiverAddress: joinNonEmpty(", ", addr.Neighborhood, addr.AddressLine),
		ReceiverPhone:   phone,
		ReceiverCity:    addr.City,
		ReceiverTown:    addr.District,
		PieceCount:      order.Totals.ItemCount,
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
