package domain

// Product is the catalog read model. Catalog documents live in per-category
// collections and are looked up by their indexed id field, not by _id.
type Product struct {
	ID        string   `bson:"id"`
	Title     string   `bson:"title,omitempty"`
	Price     float64  `bson:"price,omitempty"`
	Currency  string   `bson:"currency,omitempty"`
	Images    []string `bson:"images,omitempty"`
	Category  string   `bson:"category,omitempty"`
	IsDeleted bool     `bson:"is_deleted,omitempty"`
}
