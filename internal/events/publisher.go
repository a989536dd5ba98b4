package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

const (
	TypeOrderCreated  = "order.created"
	TypeStatusChanged = "order.status_changed"
)

// OrderEvent is the payload published for order lifecycle changes. Keyed by
// order ID so all events of one order stay in partition order.
type OrderEvent struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	OldStatus      string    `json:"old_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	GrandTotal     float64   `json:"grand_total,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	At             time.Time `json:"at"`
}

type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewPublisher(topic string, logger *slog.Logger, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Snappy,
	}
	return &Publisher{
		writer: w,
		logger: logger.With("component", "events"),
	}
}

func (p *Publisher) OrderCreated(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, OrderEvent{
		Type:       TypeOrderCreated,
		OrderID:    order.ID,
		UserID:     order.UserID,
		NewStatus:  string(order.Status),
		GrandTotal: order.Totals.GrandTotal,
		Currency:   order.Totals.Currency,
		At:         time.Now(),
	})
}

func (p *Publisher) StatusChanged(ctx context.Context, order *domain.Order, old domain.OrderStatus) error {
	return p.publish(ctx, OrderEvent{
		Type:           TypeStatusChanged,
		OrderID:        order.ID,
		UserID:         order.UserID,
		OldStatus:      string(old),
		NewStatus:      string(order.Status),
		TrackingNumber: order.Shipping.TrackingNumber,
		At:             time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("error closing kafka writer", "error", err)
	}
}
