package domain

// User is the profile document. Older documents carry addresses embedded on
// the profile instead of in the addresses collection; both forms are kept
// readable for the address fallback chain.
type User struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name,omitempty"`
	Email     string    `bson:"email,omitempty"`
	Phone     string    `bson:"phone,omitempty"`
	Address   *Address  `bson:"address,omitempty"`
	Addresses []Address `bson:"addresses,omitempty"`
}

// Principal is the authenticated caller extracted from the request token.
type Principal struct {
	UID   string
	Name  string
	Email string
	Phone string
	Admin bool
}
