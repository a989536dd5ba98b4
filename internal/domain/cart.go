package domain

import "time"

// CartItem is one resolved cart line. Legacy carts stored lines in several
// shapes; the repository normalizes all of them into this struct, leaving
// price fields zero when the stored shape carried none.
type CartItem struct {
	ProductID string  `bson:"product_id"`
	Title     string  `bson:"title,omitempty"`
	Quantity  int     `bson:"qty"`
	UnitPrice float64 `bson:"unit_price,omitempty"`
	LineTotal float64 `bson:"line_total,omitempty"`
	Currency  string  `bson:"currency,omitempty"`
	Image     string  `bson:"image,omitempty"`
}

type Cart struct {
	UserID    string     `bson:"user_id"`
	Items     []CartItem `bson:"items"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}
