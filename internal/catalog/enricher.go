package catalog

import (
	"context"
	"log/slog"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// Enricher fills cart lines with catalog data before an order is built.
// It is strictly best-effort: a partition scan failure or an unknown product
// leaves the line as the caller provided it and never blocks the checkout.
type Enricher struct {
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

func NewEnricher(catalog repository.CatalogRepository, logger *slog.Logger) *Enricher {
	return &Enricher{
		catalog: catalog,
		logger:  logger.With("component", "catalog"),
	}
}

// Enrich looks every line's product up across the catalog partitions and
// fills title, unit price, currency and image from the catalog document.
// Caller-provided prices are kept; the catalog only supplies what the line
// is missing.
func (e *Enricher) Enrich(ctx context.Context, items []domain.CartItem) []domain.CartItem {
	if len(items) == 0 {
		return items
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductID != "" {
			ids = append(ids, item.ProductID)
		}
	}

	products, err := e.catalog.FindProducts(ctx, ids)
	if err != nil {
		e.logger.WarnContext(ctx, "catalog enrichment skipped", "error", err)
		return items
	}

	enriched := make([]domain.CartItem, len(items))
	for i, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			enriched[i] = item
			continue
		}
		enriched[i] = mergeLine(item, product)
	}
	return enriched
}

func mergeLine(item domain.CartItem, product domain.Product) domain.CartItem {
	if product.Title != "" {
		item.Title = product.Title
	}
	if item.UnitPrice == 0 {
		item.UnitPrice = product.Price
	}
	if item.Currency == "" {
		item.Currency = product.Currency
	}
	if item.Image == "" && len(product.Images) > 0 {
		item.Image = product.Images[0]
	}
	return item
}
