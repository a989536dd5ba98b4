package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
)

var ErrAddressNotFound = errors.New("address not found")

type AddressRepository interface {
	FindByID(ctx context.Context, userID, addressID string) (*domain.Address, error)
	FindActive(ctx context.Context, userID string) (*domain.Address, error)
	FindNewest(ctx context.Context, userID string) (*domain.Address, error)
}

type mongoAddressRepository struct {
	collection *mongo.Collection
}

func NewAddressRepository(db *mongo.Database) AddressRepository {
	return &mongoAddressRepository{
		collection: db.Collection("addresses"),
	}
}

func (m *mongoAddressRepository) FindByID(ctx context.Context, userID, addressID string) (*domain.Address, error) {
	filter := bson.M{
		"_id":        addressID,
		"user_id":    userID,
		"is_deleted": bson.M{"$ne": true},
	}
	return m.findOne(ctx, filter, nil)
}

func (m *mongoAddressRepository) FindActive(ctx context.Context, userID string) (*domain.Address, error) {
	filter := bson.M{
		"user_id":    userID,
		"is_active":  true,
		"is_deleted": bson.M{"$ne": true},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.findOne(ctx, filter, opts)
}

func (m *mongoAddressRepository) FindNewest(ctx context.Context, userID string) (*domain.Address, error) {
	filter := bson.M{
		"user_id":    userID,
		"is_deleted": bson.M{"$ne": true},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.findOne(ctx, filter, opts)
}

func (m *mongoAddressRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Address, error) {
	var address domain.Address
	var err error
	if opts != nil {
		err = m.collection.FindOne(ctx, filter, opts).Decode(&address)
	} else {
		err = m.collection.FindOne(ctx, filter).Decode(&address)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &address, nil
}
