package domain

import (
	"strings"
	"time"
)

const CarrierAras = "aras"

type OrderItem struct {
	ProductID string  `bson:"product_id"`
	Title     string  `bson:"title"`
	Quantity  int     `bson:"qty"`
	UnitPrice float64 `bson:"unit_price"`
	LineTotal float64 `bson:"line_total"`
	Currency  string  `bson:"currency"`
	Image     string  `bson:"image,omitempty"`
}

type Totals struct {
	ItemCount  int     `bson:"item_count"`
	Subtotal   float64 `bson:"subtotal"`
	Discount   float64 `bson:"discount"`
	Shipping   float64 `bson:"shipping"`
	Tax        float64 `bson:"tax"`
	GrandTotal float64 `bson:"grand_total"`
	Currency   string  `bson:"currency"`
}

// Customer is the contact snapshot taken from the authenticated principal
// at checkout time.
type Customer struct {
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
	Email string `bson:"email"`
}

// Shipping holds everything the carrier integration knows about an order.
// IntegrationCode is the key the carrier indexes shipments by; for orders
// created here it equals the order ID.
type Shipping struct {
	Provider          string `bson:"provider"`
	TrackingNumber    string `bson:"tracking_number,omitempty"`
	IntegrationCode   string `bson:"integration_code,omitempty"`
	LastCarrierStatus string `bson:"last_carrier_status,omitempty"`
	LabelURL          string `bson:"label_url,omitempty"`
	PickupReference   string `bson:"pickup_reference,omitempty"`
	Simulated         bool   `bson:"simulated"`
}

// Registered reports whether the carrier knows about this shipment yet.
func (s Shipping) Registered() bool {
	return s.TrackingNumber != "" || s.IntegrationCode != ""
}

type Payment struct {
	Provider string `bson:"provider,omitempty"`
	IntentID string `bson:"intent_id,omitempty"`
	Status   string `bson:"status,omitempty"`
}

type Order struct {
	ID         string      `bson:"_id"`
	UserID     string      `bson:"user_id"`
	CheckoutID string      `bson:"checkout_id,omitempty"`
	Items      []OrderItem `bson:"items"`
	Totals     Totals      `bson:"totals"`
	Status     OrderStatus `bson:"status"`
	Address    Address     `bson:"address"`
	// AddressMissing marks orders that went out with an empty address
	// snapshot because no fallback strategy found one.
	AddressMissing bool `bson:"address_missing,omitempty"`
	Customer   Customer    `bson:"customer"`
	Shipping   Shipping    `bson:"shipping"`
	Payment    Payment     `bson:"payment,omitempty"`
	Note       string      `bson:"note,omitempty"`
	CreatedAt  time.Time   `bson:"created_at"`
	UpdatedAt  time.Time   `bson:"updated_at"`
}

// TrackingLink renders the carrier tracking URL from a template containing
// the {tracking_number} placeholder. Empty when the order has no tracking
// number yet.
func (o *Order) TrackingLink(template string) string {
	if o.Shipping.TrackingNumber == "" || template == "" {
		return ""
	}
	return strings.ReplaceAll(template, "{tracking_number}", o.Shipping.TrackingNumber)
}
