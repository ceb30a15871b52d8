package models

// Trip is the aggregate root of a shared ledger: a group of participants
// recording expenses against each other. A trip always has at least one
// participant (its creator).
type Trip struct {
	Base
	CreatorID   string `gorm:"type:uuid;not null;index" json:"creator_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Currency    string `gorm:"not null;default:'USD'" json:"currency"`

	Members  []TripMember `gorm:"foreignKey:TripID" json:"members,omitempty"`
	Expenses []Expense    `gorm:"foreignKey:TripID" json:"expenses,omitempty"`
}

// TripMember links a user to a trip's participant set.
type TripMember struct {
	Base
	TripID string `gorm:"type:uuid;not null;uniqueIndex:idx_trip_user" json:"trip_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_trip_user" json:"user_id"`
}

// MemberIDs returns the trip's participant user IDs in unspecified order.
func (t *Trip) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasMember reports whether the given user is a participant of the trip.
func (t *Trip) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
