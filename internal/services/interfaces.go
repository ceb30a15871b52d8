package services

import (
	"time"

	"gorm.io/gorm"

	"triptribe/internal/models"
	"triptribe/internal/pagination"
	"triptribe/internal/settle"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// TripServicer defines the contract for trip membership and lifecycle.
type TripServicer interface {
	CreateTrip(creatorID, name, description, currency string, memberIDs []string) (*models.Trip, error)
	GetTripByID(userID, tripID string) (*models.Trip, error)
	GetUserTrips(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trip], error)
	AddMember(userID, tripID, newMemberID string) (*models.Trip, error)
}

// ExpenseRequest carries the parameters for recording a shared expense.
// Percentages is consulted for the percentage policy, Amounts for the custom
// policy; both are ignored otherwise.
type ExpenseRequest struct {
	PayerID     string
	Amount      int64
	Description string
	Policy      models.SplitPolicy
	Percentages map[string]float64
	Amounts     map[string]int64
}

// LedgerServicer defines the contract for the shared trip ledger. Balances
// are derived state: for every trip the per-participant nets sum to zero.
type LedgerServicer interface {
	RecordExpense(userID, tripID string, req ExpenseRequest) (*models.Expense, error)
	VoidExpense(userID, tripID, expenseID string) error
	GetBalances(userID, tripID string) (map[string]int64, error)
	GetTripExpenses(userID, tripID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

// SettlementServicer turns a trip's net balances into settling transfers and
// optionally executes them against participant wallets.
type SettlementServicer interface {
	PlanSettlement(userID, tripID string) ([]settle.Transfer, error)
	ExecuteSettlement(userID, tripID string) ([]models.Settlement, error)
}

// WalletServicer defines the contract for stored-value wallets. Every
// mutation appends exactly one transaction log entry and accrues reward
// points in the same atomic unit.
type WalletServicer interface {
	GetOrCreate(userID string) (*models.Wallet, error)
	GetByUserID(userID string) (*models.Wallet, error)
	AddFunds(userID string, amount int64, description string) (*models.WalletTransaction, error)
	// Transfer moves funds between two users' wallets as a single atomic
	// unit. A non-empty tripID marks the transfer trip-related, which earns
	// the higher reward rate.
	Transfer(fromUserID, toUserID string, amount int64, description, tripID string) (*models.WalletTransaction, error)
	// TransferWith additionally runs follow inside the same database
	// transaction as both wallet legs, so companion rows commit or roll
	// back with the movement.
	TransferWith(fromUserID, toUserID string, amount int64, description, tripID string, follow func(tx *gorm.DB) error) (*models.WalletTransaction, error)
	// Debit withdraws funds without a receiving wallet, used by scheduled
	// goal contributions.
	Debit(userID string, amount int64, description string) (*models.WalletTransaction, error)
	// DebitWith runs follow inside the same database transaction as the
	// withdrawal.
	DebitWith(userID string, amount int64, description string, follow func(tx *gorm.DB) error) (*models.WalletTransaction, error)
	RedeemRewards(userID string, points int64) (*models.WalletTransaction, error)
	GetTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.WalletTransaction], error)
	SetStatus(userID string, status models.WalletStatus) (*models.Wallet, error)
}

// GoalRequest carries the parameters for creating a savings goal.
type GoalRequest struct {
	Name      string
	Target    int64
	Deadline  time.Time
	IsGroup   bool
	MemberIDs []string
	AutoSave  bool
	Frequency models.GoalFrequency
}

// GoalProgress reports accumulation vs target for one goal.
type GoalProgress struct {
	GoalID      string            `json:"goal_id"`
	Target      int64             `json:"target"`
	Accumulated int64             `json:"accumulated"`
	Remaining   int64             `json:"remaining"`
	Percentage  float64           `json:"percentage"`
	Status      models.GoalStatus `json:"status"`
}

// SavingsRecommendation suggests a daily saving pace for an active goal.
type SavingsRecommendation struct {
	GoalID    string `json:"goal_id"`
	Name      string `json:"name"`
	Remaining int64  `json:"remaining"`
	DaysLeft  int    `json:"days_left"`
	PerDay    int64  `json:"per_day"`
}

// AutoSaveReport summarizes one scheduled-contribution sweep.
type AutoSaveReport struct {
	Contributions []models.Contribution        `json:"contributions"`
	Skipped       []models.SkippedContribution `json:"skipped"`
}

// GoalServicer defines the contract for savings goals and their scheduled
// contributions.
type GoalServicer interface {
	CreateGoal(creatorID string, req GoalRequest) (*models.SavingsGoal, error)
	GetGoalByID(userID, goalID string) (*models.SavingsGoal, error)
	GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error)
	Contribute(goalID, userID string, amount int64) (*models.Contribution, error)
	CancelGoal(userID, goalID string) (*models.SavingsGoal, error)
	GetProgress(userID, goalID string) (*GoalProgress, error)
	GetRecommendations(userID string, now time.Time) ([]SavingsRecommendation, error)
	// RunScheduledContributions processes every active auto-save goal whose
	// next due time is at or before now. Insufficient funds for one
	// participant never fails the sweep.
	RunScheduledContributions(now time.Time) (*AutoSaveReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
