package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

const providerName = "stripe"

// Charger creates a payment intent per order. It is a collaborator, not a
// gate: capture and refund flows live elsewhere, and a missing API key just
// disables it.
type Charger struct {
	enabled bool
	logger  *slog.Logger
}

func New(apiKey string, logger *slog.Logger) *Charger {
	if apiKey != "" {
		stripe.Key = apiKey
	}
	return &Charger{
		enabled: apiKey != "",
		logger:  logger.With("component", "payment"),
	}
}

// CreateIntent registers the order total with the payment provider and
// returns what the order should record. Amounts go over in minor units.
func (c *Charger) CreateIntent(ctx context.Context, order *domain.Order) (domain.Payment, error) {
	if !c.enabled {
		return domain.Payment{Provider: providerName, Status: "skipped"}, nil
	}

	currency := order.Totals.Currency
	if currency == "" {
		currency = "TRY"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(order.Totals.GrandTotal)),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID)
	params.AddMetadata("user_id", order.UserID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return domain.Payment{Provider: providerName, Status: "failed"},
			fmt.Errorf("failed to create payment intent: %w", err)
	}

	return domain.Payment{
		Provider: providerName,
		IntentID: intent.ID,
		Status:   string(intent.Status),
	}, nil
}

func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
