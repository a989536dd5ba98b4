package cartresolver

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/sunucuics/ICS-APP-BACK/internal/cache"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// Resolver reads a user's cart, falling back through the historical storage
// shapes: one document per line, the embedded items array, and the oldest
// product-to-quantity map. The first shape that yields lines wins.
type Resolver struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	sfg    singleflight.Group // Prevents cache stampede
	logger *slog.Logger
}

func New(repo repository.CartRepository, cache cache.CartCache, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		cache:  cache,
		logger: logger.With("component", "cartresolver"),
	}
}

type shapeSource struct {
	name  string
	fetch func(ctx context.Context, userID string) ([]domain.CartItem, error)
}

func (r *Resolver) sources() []shapeSource {
	return []shapeSource{
		{"cart_items", r.repo.ListItems},
		{"legacy_array", r.repo.LegacyArrayItems},
		{"legacy_map", r.repo.LegacyMapItems},
	}
}

// Resolve returns the cart lines for userID or ErrEmptyCart when no shape
// holds any. Concurrent calls for the same user collapse into one lookup.
func (r *Resolver) Resolve(ctx context.Context, userID string) ([]domain.CartItem, error) {
	v, err, _ := r.sfg.Do(userID, func() (interface{}, error) {
		cached, err := r.cache.Get(ctx, userID)
		if err == nil {
			return cached.Items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.WarnContext(ctx, "cart cache read failed", "error", err)
		}

		items, err := r.resolveFromStore(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			cart := &domain.Cart{UserID: userID, Items: items}
			if err := r.cache.Set(context.Background(), userID, cart); err != nil {
				r.logger.Warn("cart cache write failed", "error", err)
			}
		}()

		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.CartItem), nil
}

func (r *Resolver) resolveFromStore(ctx context.Context, userID string) ([]domain.CartItem, error) {
	for _, src := range r.sources() {
		items, err := src.fetch(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			continue
		}
		if err != nil {
			r.logger.WarnContext(ctx, "cart shape read failed",
				"shape", src.name, "error", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		return clampQuantities(items), nil
	}
	return nil, ErrEmptyCart
}

// clampQuantities raises non-positive quantities to one. Legacy writers
// stored unset quantities as zero.
func clampQuantities(items []domain.CartItem) []domain.CartItem {
	for i := range items {
		if items[i].Quantity < 1 {
			items[i].Quantity = 1
		}
	}
	return items
}

// Clear removes all shapes of the cart and drops the cached copy. Called
// after a successful checkout.
func (r *Resolver) Clear(ctx context.Context, userID string) error {
	if err := r.repo.Clear(ctx, userID); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, userID); err != nil {
		r.logger.WarnContext(ctx, "cart cache invalidation failed", "error", err)
	}
	return nil
}
