package models

// Society is the top-level tenant boundary.
type Society struct {
	ID           string
	Name         string
	Country      string
	City         string
	Area         string
	MobileNumber string
	Status       Status

	// SubscriptionStart and SubscriptionEnd bound the paid subscription window.
	SubscriptionStart int64
	SubscriptionEnd   int64

	// CreatedBy is the superadmin who registered the society.
	CreatedBy string
	CreatedAt int64
}

// Building is a block inside a society.
type Building struct {
	ID         string
	SocietyID  string
	Name       string
	TotalUnits int
	CreatedAt  int64
}

// Flat is a single unit. OwnerID is set the first time an owner references
// the flat and is never cleared afterwards.
type Flat struct {
	ID         string
	SocietyID  string
	BuildingID string
	FlatNo     string
	OwnerID    string
	CreatedAt  int64
}
