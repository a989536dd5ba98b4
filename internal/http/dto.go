package http

import (
	"time"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

type OrderItemDTO struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
	Currency  string  `json:"currency"`
	Image     string  `json:"image,omitempty"`
}

type TotalsDTO struct {
	ItemCount  int     `json:"item_count"`
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	Shipping   float64 `json:"shipping"`
	Tax        float64 `json:"tax"`
	GrandTotal float64 `json:"grand_total"`
	Currency   string  `json:"currency"`
}

type CustomerDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type AddressDTO struct {
	ID           string `json:"id,omitempty"`
	Label        string `json:"label,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	AddressLine  string `json:"address_line,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type ShippingDTO struct {
	Provider          string `json:"provider"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
	IntegrationCode   string `json:"integration_code,omitempty"`
	LastCarrierStatus string `json:"last_carrier_status,omitempty"`
	LabelURL          string `json:"label_url,omitempty"`
	PickupReference   string `json:"pickup_reference,omitempty"`
	Simulated         bool   `json:"simulated"`
	// TrackingLink is rendered from the tracking number on the way
	// out; it is never stored.
	TrackingLink string `json:"tracking_link,omitempty"`
}

type PaymentDTO struct {
	Provider string `json:"provider,omitempty"`
	IntentID string `json:"intent_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

type OrderResponseDTO struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	CheckoutID     string         `json:"checkout_id,omitempty"`
	Items          []OrderItemDTO `json:"items"`
	Totals         TotalsDTO      `json:"totals"`
	Status         string         `json:"status"`
	Address        AddressDTO     `json:"address"`
	AddressMissing bool           `json:"address_missing,omitempty"`
	Customer       CustomerDTO    `json:"customer"`
	Shipping       ShippingDTO    `json:"shipping"`
	Payment        PaymentDTO     `json:"payment,omitempty"`
	Note           string         `json:"note,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func convertOrder(o *domain.Order, trackingTemplate string) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			Currency:  item.Currency,
			Image:     item.Image,
		})
	}

	return OrderResponseDTO{
		ID:         o.ID,
		UserID:     o.UserID,
		CheckoutID: o.CheckoutID,
		Items:      items,
		Totals: TotalsDTO{
			ItemCount:  o.Totals.ItemCount,
			Subtotal:   o.Totals.Subtotal,
			Discount:   o.Totals.Discount,
			Shipping:   o.Totals.Shipping,
			Tax:        o.Totals.Tax,
			GrandTotal: o.Totals.GrandTotal,
			Currency:   o.Totals.Currency,
		},
		Status: o.Status.String(),
		Address: AddressDTO{
			ID:           o.Address.ID,
			Label:        o.Address.Label,
			FullName:     o.Address.FullName,
			Phone:        o.Address.Phone,
			City:         o.Address.City,
			District:     o.Address.District,
			Neighborhood: o.Address.Neighborhood,
			AddressLine:  o.Address.AddressLine,
			PostalCode:   o.Address.PostalCode,
		},
		AddressMissing: o.AddressMissing,
		Customer: CustomerDTO{
			Name:  o.Customer.Name,
			Phone: o.Customer.Phone,
			Email: o.Customer.Email,
		},
		Shipping: ShippingDTO{
			Provider:          o.Shipping.Provider,
			TrackingNumber:    o.Shipping.TrackingNumber,
			IntegrationCode:   o.Shipping.IntegrationCode,
			LastCarrierStatus: o.Shipping.LastCarrierStatus,
			LabelURL:          o.Shipping.LabelURL,
			PickupReference:   o.Shipping.PickupReference,
			Simulated:         o.Shipping.Simulated,
			TrackingLink:      o.TrackingLink(trackingTemplate),
		},
		Payment: PaymentDTO{
			Provider: o.Payment.Provider,
			IntentID: o.Payment.IntentID,
			Status:   o.Payment.Status,
		},
		Note:      o.Note,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func convertOrders(orders []domain.Order, trackingTemplate string) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, convertOrder(&orders[i], trackingTemplate))
	}
	return dtos
}
