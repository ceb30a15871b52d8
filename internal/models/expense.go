package models

// SplitPolicy determines how an expense amount is divided among participants.
type SplitPolicy string

const (
	SplitPolicyEqual      SplitPolicy = "equal"
	SplitPolicyPercentage SplitPolicy = "percentage"
	SplitPolicyCustom     SplitPolicy = "custom"
)

// ExpenseStatus tracks whether an expense still counts toward balances.
type ExpenseStatus string

const (
	ExpenseStatusPosted ExpenseStatus = "posted"
	ExpenseStatusVoided ExpenseStatus = "voided"
)

// Expense represents a shared cost paid by one participant on behalf of the
// trip. Expenses are immutable once recorded; a void appends a reversing
// allocation set rather than mutating or deleting rows.
type Expense struct {
	Base
	TripID      string        `gorm:"type:uuid;not null;index" json:"trip_id"`
	PayerID     string        `gorm:"type:uuid;not null;index" json:"payer_id"`
	Amount      int64         `gorm:"type:bigint;not null" json:"amount"`
	Description string        `json:"description"`
	Policy      SplitPolicy   `gorm:"not null" json:"policy"`
	Status      ExpenseStatus `gorm:"not null;default:'posted'" json:"status"`

	Allocations []Allocation `gorm:"foreignKey:ExpenseID" json:"allocations,omitempty"`
}

// AllocationKind distinguishes original charges from void reversals.
type AllocationKind string

const (
	AllocationKindCharge   AllocationKind = "charge"
	AllocationKindReversal AllocationKind = "reversal"
)

// Allocation is one participant's owed share of an expense. The charge rows
// of an expense sum exactly to its amount; a reversal row negates a charge.
type Allocation struct {
	Base
	ExpenseID     string         `gorm:"type:uuid;not null;index" json:"expense_id"`
	TripID        string         `gorm:"type:uuid;not null;index" json:"trip_id"`
	ParticipantID string         `gorm:"type:uuid;not null;index" json:"participant_id"`
	Amount        int64          `gorm:"type:bigint;not null" json:"amount"`
	Kind          AllocationKind `gorm:"not null;default:'charge'" json:"kind"`
}

// Settlement is an executed transfer between two trip participants that pays
// down debt from recorded expenses. Like expenses it is append-only and feeds
// into balance computation: the payer's paid total rises, the receiver's owed
// total rises.
type Settlement struct {
	Base
	TripID     string `gorm:"type:uuid;not null;index" json:"trip_id"`
	FromUserID string `gorm:"type:uuid;not null" json:"from_user_id"`
	ToUserID   string `gorm:"type:uuid;not null" json:"to_user_id"`
	Amount     int64  `gorm:"type:bigint;not null" json:"amount"`
}
