package checkout

import (
	"math"
	"strings"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

const (
	defaultCurrency = "TRY"
	defaultTitle    = "Ürün"
)

// round2 rounds to two decimal places, half away from zero. All money
// arithmetic in this package goes through it so repeated additions do
// not accumulate float dust.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// coerceItem normalizes a single cart line into an order line. Quantity
// is clamped to at least 1, prices are rounded to kuruş, and a missing
// line total is recomputed from quantity and unit price.
func coerceItem(in domain.CartItem) domain.OrderItem {
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}

	unit := round2(in.UnitPrice)
	line := round2(in.LineTotal)
	if line == 0 {
		line = round2(float64(qty) * unit)
	}

	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultTitle
	}

	return domain.OrderItem{
		ProductID: in.ProductID,
		Title:     title,
		Quantity:  qty,
		UnitPrice: unit,
		LineTotal: line,
		Currency:  currency,
		Image:     in.Image,
	}
}

func coerceItems(in []domain.CartItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(in))
	for _, item := range in {
		out = append(out, coerceItem(item))
	}
	return out
}

// calcTotals sums the coerced lines and folds in the order level
// adjustments. The grand total never goes below zero, even when the
// discount exceeds the item subtotal.
func calcTotals(items []domain.OrderItem, discount, shipping, tax float64) domain.Totals {
	totals := domain.Totals{Currency: defaultCurrency}

	var subtotal float64
	for _, item := range items {
		totals.ItemCount += item.Quantity
		subtotal += item.LineTotal
		if totals.Currency == defaultCurrency && item.Currency != "" {
			totals.Currency = item.Currency
		}
	}

	totals.Subtotal = round2(subtotal)
	totals.Discount = round2(math.Max(0, discount))
	totals.Shipping = round2(math.Max(0, shipping))
	totals.Tax = round2(math.Max(0, tax))

	grand := round2(totals.Subtotal - totals.Discount + totals.Shipping + totals.Tax)
	if grand < 0 {
		grand = 0
	}
	totals.GrandTotal = grand
	return totals
}
