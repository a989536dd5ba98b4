package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

const (
	partitionPrefix   = "products_"
	partitionCacheTTL = 5 * time.Minute
)

// CatalogRepository looks products up across the per-category catalog
// partitions. Every partition indexes the id field.
type CatalogRepository interface {
	FindProduct(ctx context.Context, productID string) (*domain.Product, error)
	FindProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

type mongoCatalogRepository struct {
	db *mongo.Database

	mu         sync.Mutex
	partitions []string
	fetchedAt  time.Time
}

func NewCatalogRepository(db *mongo.Database) CatalogRepository {
	return &mongoCatalogRepository{db: db}
}

// partitionNames lists the catalog collections, cached briefly so a checkout
// burst does not hammer listCollections.
func (m *mongoCatalogRepository) partitionNames(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.partitions != nil && time.Since(m.fetchedAt) < partitionCacheTTL {
		return m.partitions, nil
	}

	names, err := m.db.ListCollectionNames(ctx, bson.M{
		"name": bson.M{"$regex": "^" + partitionPrefix},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog partitions: %w", err)
	}

	m.partitions = names
	m.fetchedAt = time.Now()
	return names, nil
}

func (m *mongoCatalogRepository) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	names, err := m.partitionNames(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"id": productID, "is_deleted": bson.M{"$ne": true}}
	for _, name := range names {
		var product domain.Product
		err := m.db.Collection(name).FindOne(ctx, filter).Decode(&product)
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to query partition %s: %w", name, err)
		}
	}
	return nil, ErrProductNotFound
}

// FindProducts resolves a batch of product IDs with one query per partition.
// Missing products are simply absent from the result map.
func (m *mongoCatalogRepository) FindProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	found := make(map[string]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return found, nil
	}

	names, err := m.partitionNames(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(bson.A, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, id)
	}
	filter := bson.M{"id": bson.M{"$in": ids}, "is_deleted": bson.M{"$ne": true}}

	for _, name := range names {
		cursor, err := m.db.Collection(name).Find(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to query partition %s: %w", name, err)
		}

		var products []domain.Product
		if err := cursor.All(ctx, &products); err != nil {
			return nil, fmt.Errorf("failed to decode partition %s: %w", name, err)
		}
		for _, p := range products {
			if _, ok := found[p.ID]; !ok {
				found[p.ID] = p
			}
		}
		if len(found) == len(productIDs) {
			break
		}
	}
	return found, nil
}
