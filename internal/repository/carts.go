package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository reads the three historical cart shapes. The resolver layer
// decides the fallback order; each method only answers for its own shape and
// returns ErrCartNotFound when that shape holds nothing for the user.
type CartRepository interface {
	ListItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	LegacyArrayItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	LegacyMapItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	Clear(ctx context.Context, userID string) error
}

type mongoCartRepository struct {
	items *mongo.Collection // one document per cart line
	carts *mongo.Collection // one document per user, legacy shapes
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		items: db.Collection("cart_items"),
		carts: db.Collection("carts"),
	}
}

// legacyItem tolerates the field aliases older writers used for the same
// values. normalizeItem picks the first populated alias.
type legacyItem struct {
	ProductID  string  `bson:"product_id"`
	AltID      string  `bson:"id"`
	Title      string  `bson:"title"`
	Name       string  `bson:"name"`
	Qty        int     `bson:"qty"`
	Quantity   int     `bson:"quantity"`
	UnitPrice  float64 `bson:"unit_price"`
	Price      float64 `bson:"price"`
	LineTotal  float64 `bson:"line_total"`
	Total      float64 `bson:"total"`
	Currency   string  `bson:"currency"`
	Image      string  `bson:"image"`
	FirstImage string  `bson:"image_url"`
}

func normalizeItem(li legacyItem) domain.CartItem {
	item := domain.CartItem{
		ProductID: li.ProductID,
		Title:     li.Title,
		Quantity:  li.Qty,
		UnitPrice: li.UnitPrice,
		LineTotal: li.LineTotal,
		Currency:  li.Currency,
		Image:     li.Image,
	}
	if item.ProductID == "" {
		item.ProductID = li.AltID
	}
	if item.Title == "" {
		item.Title = li.Name
	}
	if item.Quantity == 0 {
		item.Quantity = li.Quantity
	}
	if item.UnitPrice == 0 {
		item.UnitPrice = li.Price
	}
	if item.LineTotal == 0 {
		item.LineTotal = li.Total
	}
	if item.Image == "" {
		item.Image = li.FirstImage
	}
	return item
}

func normalizeItems(lis []legacyItem) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(lis))
	for _, li := range lis {
		items = append(items, normalizeItem(li))
	}
	return items
}

func (m *mongoCartRepository) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	cursor, err := m.items.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []legacyItem
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrCartNotFound
	}
	return normalizeItems(raw), nil
}

// LegacyArrayItems reads the generation of cart documents that embedded an
// items array. A document whose items field is not an array decodes into a
// mismatch and counts as not found for this shape.
func (m *mongoCartRepository) LegacyArrayItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	var doc struct {
		Items []legacyItem `bson:"items"`
	}
	err := m.carts.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		// Shape mismatch: the items field holds the map form.
		return nil, ErrCartNotFound
	}
	if len(doc.Items) == 0 {
		return nil, ErrCartNotFound
	}
	return normalizeItems(doc.Items), nil
}

// LegacyMapItems reads the oldest cart shape, a product-id to quantity map.
func (m *mongoCartRepository) LegacyMapItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	var doc struct {
		Items map[string]interface{} `bson:"items"`
	}
	err := m.carts.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, ErrCartNotFound
	}

	items := mapToItems(doc.Items)
	if len(items) == 0 {
		return nil, ErrCartNotFound
	}
	return items, nil
}

// mapToItems keeps numeric entries as-is, zero included; the checkout
// coercion is where quantities get clamped. Non-numeric values mean the
// document is not really the map shape.
func mapToItems(quantities map[string]interface{}) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(quantities))
	for productID, qty := range quantities {
		n, ok := asQuantity(qty)
		if !ok {
			continue
		}
		items = append(items, domain.CartItem{ProductID: productID, Quantity: n})
	}
	return items
}

func asQuantity(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Clear removes every shape of the user's cart.
func (m *mongoCartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := m.items.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if _, err := m.carts.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to clear legacy cart: %w", err)
	}
	return nil
}
