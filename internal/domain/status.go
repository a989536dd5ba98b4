package domain

import "fmt"

// OrderStatus is the customer-facing shipment status. Values are the Turkish
// labels stored in the database and shown in the app.
type OrderStatus string

const (
	StatusPreparing       OrderStatus = "Hazırlanıyor"
	StatusOrderReceived   OrderStatus = "Sipariş Alındı"
	StatusHandedToCarrier OrderStatus = "Kargoya Verildi"
	StatusInTransit       OrderStatus = "Yolda"
	StatusOutForDelivery  OrderStatus = "Dağıtımda"
	StatusDelivered       OrderStatus = "Teslim Edildi"
	StatusCancelled       OrderStatus = "İptal Edildi"
	StatusReturned        OrderStatus = "İade"
)

// statusRank orders the delivery progression. Cancelled and Returned sit
// outside the progression and are reachable only by explicit action.
var statusRank = map[OrderStatus]int{
	StatusPreparing:       0,
	StatusOrderReceived:   1,
	StatusHandedToCarrier: 2,
	StatusInTransit:       3,
	StatusOutForDelivery:  4,
	StatusDelivered:       5,
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// Rank returns the position of s in the delivery progression, or -1 for
// statuses outside it (Cancelled, Returned, unknown values).
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is legal. Terminal
// states are never left, the progression never moves backwards, and the
// out-of-band terminals (Cancelled, Returned) are reachable from any
// non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled || next == StatusReturned {
		return true
	}
	from, to := s.Rank(), next.Rank()
	if to < 0 {
		return false
	}
	return to > from
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// OpenStatuses lists the statuses the synchronizer still polls the carrier
// for: every non-terminal stop of the delivery progression.
func OpenStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPreparing,
		StatusOrderReceived,
		StatusHandedToCarrier,
		StatusInTransit,
		StatusOutForDelivery,
	}
}

// IllegalTransitionError is returned when a requested status change would
// regress the progression or leave a terminal state.
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition from %q to %q", e.From, e.To)
}
