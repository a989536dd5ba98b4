package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("order for this checkout already exists")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
)

// ListFilter narrows admin order listings.
type ListFilter struct {
	Status string
	Limit  int64
	Offset int64
}

// ProgressPatch is the carrier-driven update applied by the synchronizer and
// the webhook. Status is only written when the document is still open, so a
// racing terminal write always wins.
type ProgressPatch struct {
	Status         *domain.OrderStatus
	CarrierStatus  string
	TrackingNumber string
}

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByUserAndCheckoutID(ctx context.Context, userID, checkoutID string) (*domain.Order, error)
	FindByTrackingRef(ctx context.Context, ref string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	ListOpenForSync(ctx context.Context) ([]domain.Order, error)
	UpdateShippingProgress(ctx context.Context, id string, patch ProgressPatch) error
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) error
	SetTracking(ctx context.Context, id, trackingNumber string) error
	ClearCarrierRegistration(ctx context.Context, id string) error
	CancelIfPreparing(ctx context.Context, id string) (*domain.Order, error)
	SetLabelURL(ctx context.Context, id, url string) error
	SetPickupReference(ctx context.Context, id, ref string) error
	SetPayment(ctx context.Context, id string, payment domain.Payment) error
	CreateIndexes(ctx context.Context) error
}

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *mongoOrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoOrderRepository) FindByUserAndCheckoutID(ctx context.Context, userID, checkoutID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"user_id": userID, "checkout_id": checkoutID})
}

// FindByTrackingRef resolves a carrier-provided identifier against the order
// ID, the integration code, and the tracking number, in that order of filter
// preference. Webhook payloads carry any of the three.
func (m *mongoOrderRepository) FindByTrackingRef(ctx context.Context, ref string) (*domain.Order, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"_id": ref},
		bson.M{"shipping.integration_code": ref},
		bson.M{"shipping.tracking_number": ref},
	}}
	return m.findOne(ctx, filter)
}

func (m *mongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.find(ctx, bson.M{"user_id": userID}, opts)
}

func (m *mongoOrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts = opts.SetSkip(filter.Offset)
	}
	return m.find(ctx, query, opts)
}

// ListOpenForSync returns orders the synchronizer may touch: non-terminal,
// not simulated, and already known to the carrier.
func (m *mongoOrderRepository) ListOpenForSync(ctx context.Context) ([]domain.Order, error) {
	open := domain.OpenStatuses()
	statuses := make(bson.A, 0, len(open))
	for _, s := range open {
		statuses = append(statuses, string(s))
	}

	filter := bson.M{
		"status":             bson.M{"$in": statuses},
		"shipping.simulated": bson.M{"$ne": true},
		"$or": bson.A{
			bson.M{"shipping.integration_code": bson.M{"$nin": bson.A{nil, ""}}},
			bson.M{"shipping.tracking_number": bson.M{"$nin": bson.A{nil, ""}}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return m.find(ctx, filter, opts)
}

func (m *mongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Order, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *mongoOrderRepository) UpdateShippingProgress(ctx context.Context, id string, patch ProgressPatch) error {
	set := bson.M{"updated_at": time.Now()}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.CarrierStatus != "" {
		set["shipping.last_carrier_status"] = patch.CarrierStatus
	}
	if patch.TrackingNumber != "" {
		set["shipping.tracking_number"] = patch.TrackingNumber
	}

	filter := bson.M{"_id": id}
	if patch.Status != nil {
		// Never overwrite a document that already reached a terminal state.
		filter["status"] = bson.M{"$nin": bson.A{
			string(domain.StatusDelivered),
			string(domain.StatusCancelled),
			string(domain.StatusReturned),
		}}
	}

	res, err := m.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order progress: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *mongoOrderRepository) SetStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return m.setFields(ctx, id, bson.M{"status": string(status)})
}

// CancelIfPreparing flips the order to cancelled only while it still sits in
// preparing, so a concurrent carrier update that already moved it on wins.
func (m *mongoOrderRepository) CancelIfPreparing(ctx context.Context, id string) (*domain.Order, error) {
	filter := bson.M{"_id": id, "status": string(domain.StatusPreparing)}
	update := bson.M{"$set": bson.M{
		"status":     string(domain.StatusCancelled),
		"updated_at": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	// No match: either the order does not exist or it left preparing.
	if _, ferr := m.FindByID(ctx, id); ferr != nil {
		return nil, ferr
	}
	return nil, ErrNotCancellable
}

func (m *mongoOrderRepository) SetTracking(ctx context.Context, id, trackingNumber string) error {
	return m.setFields(ctx, id, bson.M{"shipping.tracking_number": trackingNumber})
}

// ClearCarrierRegistration drops the integration code of an order whose
// carrier registration never went through, taking it out of the status
// synchronizer's scan until someone re-registers it.
func (m *mongoOrderRepository) ClearCarrierRegistration(ctx context.Context, id string) error {
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"shipping.integration_code": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *mongoOrderRepository) SetLabelURL(ctx context.Context, id, url string) error {
	return m.setFields(ctx, id, bson.M{"shipping.label_url": url})
}

func (m *mongoOrderRepository) SetPickupReference(ctx context.Context, id, ref string) error {
	return m.setFields(ctx, id, bson.M{"shipping.pickup_reference": ref})
}

func (m *mongoOrderRepository) SetPayment(ctx context.Context, id string, payment domain.Payment) error {
	return m.setFields(ctx, id, bson.M{"payment": payment})
}

func (m *mongoOrderRepository) setFields(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now()
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			// One order per checkout attempt; replays land on this index.
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "checkout_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkout_id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "shipping.tracking_number", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "shipping.integration_code", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
