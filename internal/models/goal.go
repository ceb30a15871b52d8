package models

import "time"

// GoalStatus is the savings goal state machine: Active transitions to
// Completed when accumulated reaches target, to Expired when the deadline
// passes short of target, or to Cancelled on request. All other states are
// terminal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusExpired   GoalStatus = "expired"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// GoalFrequency is the auto-save contribution cadence.
type GoalFrequency string

const (
	GoalFrequencyDaily   GoalFrequency = "daily"
	GoalFrequencyWeekly  GoalFrequency = "weekly"
	GoalFrequencyMonthly GoalFrequency = "monthly"
)

// SavingsGoal tracks progress toward a target amount by a deadline. Group
// goals have a non-empty member set; individual goals are owned solely by
// their creator. When auto-save is enabled, AutoSaveAmount is debited from
// the responsible wallets every period until the goal leaves Active.
type SavingsGoal struct {
	Base
	CreatorID   string     `gorm:"type:uuid;not null;index" json:"creator_id"`
	Name        string     `gorm:"not null" json:"name"`
	Target      int64      `gorm:"type:bigint;not null" json:"target"`
	Accumulated int64      `gorm:"type:bigint;not null;default:0" json:"accumulated"`
	Deadline    time.Time  `gorm:"not null" json:"deadline"`
	IsGroup     bool       `gorm:"default:false" json:"is_group"`
	Status      GoalStatus `gorm:"not null;default:'active'" json:"status"`

	AutoSave       bool          `gorm:"default:false" json:"auto_save"`
	Frequency      GoalFrequency `json:"frequency,omitempty"`
	AutoSaveAmount int64         `gorm:"type:bigint;not null;default:0" json:"auto_save_amount"`
	NextDueAt      *time.Time    `json:"next_due_at,omitempty"`

	Members       []GoalMember   `gorm:"foreignKey:GoalID" json:"members,omitempty"`
	Contributions []Contribution `gorm:"foreignKey:GoalID" json:"contributions,omitempty"`
}

// GoalMember links a user to a group goal's participant set.
type GoalMember struct {
	Base
	GoalID string `gorm:"type:uuid;not null;uniqueIndex:idx_goal_user" json:"goal_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_goal_user" json:"user_id"`
}

// HasMember reports whether the given user may contribute to a group goal.
func (g *SavingsGoal) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Period returns the duration of one auto-save cycle.
func (f GoalFrequency) Period() time.Duration {
	switch f {
	case GoalFrequencyDaily:
		return 24 * time.Hour
	case GoalFrequencyWeekly:
		return 7 * 24 * time.Hour
	case GoalFrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ContributionSource distinguishes user-initiated contributions from
// scheduled auto-save debits.
type ContributionSource string

const (
	ContributionSourceManual ContributionSource = "manual"
	ContributionSourceAuto   ContributionSource = "auto"
)

// Contribution is one append-only deposit toward a goal. The sum of a goal's
// contributions always equals its accumulated amount.
type Contribution struct {
	Base
	GoalID string             `gorm:"type:uuid;not null;index" json:"goal_id"`
	UserID string             `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount int64              `gorm:"type:bigint;not null" json:"amount"`
	Source ContributionSource `gorm:"not null;default:'manual'" json:"source"`
}

// SkippedContribution records an auto-save cycle in which a participant's
// wallet could not cover their share. Skips are non-fatal: other participants
// and other goals proceed unaffected.
type SkippedContribution struct {
	Base
	GoalID string `gorm:"type:uuid;not null;index" json:"goal_id"`
	UserID string `gorm:"type:uuid;not null" json:"user_id"`
	Amount int64  `gorm:"type:bigint;not null" json:"amount"`
	Reason string `gorm:"not null" json:"reason"`
}
