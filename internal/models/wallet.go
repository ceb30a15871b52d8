package models

// WalletStatus represents the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusFrozen WalletStatus = "frozen"
	WalletStatusClosed WalletStatus = "closed"
)

// RewardTier is the loyalty level derived from lifetime reward points.
type RewardTier string

const (
	RewardTierBronze RewardTier = "bronze"
	RewardTierSilver RewardTier = "silver"
	RewardTierGold   RewardTier = "gold"
)

// Lifetime point thresholds for reward tiers.
const (
	silverThreshold = 5_000
	goldThreshold   = 25_000
)

// Wallet is a user's stored-value account. Balance never goes below zero
// unless overdraft is explicitly enabled. Every mutation appends a
// WalletTransaction with a resulting-balance snapshot.
type Wallet struct {
	Base
	UserID           string       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance          int64        `gorm:"type:bigint;not null;default:0" json:"balance"`
	Currency         string       `gorm:"not null;default:'USD'" json:"currency"`
	Status           WalletStatus `gorm:"not null;default:'active'" json:"status"`
	CardNumber       string       `gorm:"uniqueIndex" json:"card_number"`
	OverdraftEnabled bool         `gorm:"default:false" json:"overdraft_enabled"`

	// Reward points redeemable at 1 point = 0.01 currency unit.
	RewardPoints   int64 `gorm:"type:bigint;not null;default:0" json:"reward_points"`
	LifetimePoints int64 `gorm:"type:bigint;not null;default:0" json:"lifetime_points"`

	Transactions []WalletTransaction `gorm:"foreignKey:WalletID" json:"transactions,omitempty"`
}

// Tier returns the reward tier for the wallet's lifetime points.
func (w *Wallet) Tier() RewardTier {
	switch {
	case w.LifetimePoints >= goldThreshold:
		return RewardTierGold
	case w.LifetimePoints >= silverThreshold:
		return RewardTierSilver
	default:
		return RewardTierBronze
	}
}

// WalletTransactionType enumerates the wallet transaction log entry types.
type WalletTransactionType string

const (
	WalletTxAddFunds     WalletTransactionType = "add_funds"
	WalletTxTransferOut  WalletTransactionType = "transfer_out"
	WalletTxTransferIn   WalletTransactionType = "transfer_in"
	WalletTxRewardRedeem WalletTransactionType = "reward_redeem"
)

// WalletTransaction is one immutable entry in a wallet's append-only log.
// BalanceAfter snapshots the wallet balance immediately after the entry was
// applied, and PointsAccrued records the reward accrual that happened in the
// same atomic unit.
type WalletTransaction struct {
	Base
	WalletID       string                `gorm:"type:uuid;not null;index" json:"wallet_id"`
	Type           WalletTransactionType `gorm:"not null" json:"type"`
	Amount         int64                 `gorm:"type:bigint;not null" json:"amount"`
	Description    string                `json:"description"`
	BalanceAfter   int64                 `gorm:"type:bigint;not null" json:"balance_after"`
	PointsAccrued  int64                 `gorm:"type:bigint;not null;default:0" json:"points_accrued"`
	CounterpartyID *string               `gorm:"type:uuid" json:"counterparty_id,omitempty"`
	TripID         *string               `gorm:"type:uuid;index" json:"trip_id,omitempty"`
}
