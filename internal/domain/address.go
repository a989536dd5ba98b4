package domain

import "time"

// Address is a delivery address. Orders embed a full copy at checkout time
// so later edits to the address book never change where a shipment went.
type Address struct {
	ID           string    `bson:"_id,omitempty"`
	UserID       string    `bson:"user_id,omitempty"`
	Label        string    `bson:"label,omitempty"`
	FullName     string    `bson:"full_name,omitempty"`
	Phone        string    `bson:"phone,omitempty"`
	City         string    `bson:"city,omitempty"`
	District     string    `bson:"district,omitempty"`
	Neighborhood string    `bson:"neighborhood,omitempty"`
	AddressLine  string    `bson:"address_line,omitempty"`
	PostalCode   string    `bson:"postal_code,omitempty"`
	IsActive     bool      `bson:"is_active,omitempty"`
	IsDeleted    bool      `bson:"is_deleted,omitempty"`
	CreatedAt    time.Time `bson:"created_at,omitempty"`
}

// IsZero reports whether the address carries no destination at all.
func (a Address) IsZero() bool {
	return a.City == "" && a.District == "" && a.AddressLine == "" && a.FullName == ""
}
