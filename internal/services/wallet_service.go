package services

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/locking"
	"triptribe/internal/models"
	"triptribe/internal/pagination"
)

// Reward accrual rates in percent. Trip-related transfers earn the higher
// rate; 1 point redeems for 1 minor currency unit.
const (
	rewardRateTripPct    = 2
	rewardRateDefaultPct = 1
)

// conflictRetries bounds how often a lost optimistic update is retried
// before Conflict surfaces to the caller.
const conflictRetries = 3

// walletService manages stored-value wallets. Every balance mutation appends
// exactly one transaction log entry and accrues reward points in the same
// database transaction.
type walletService struct {
	db    *gorm.DB
	locks *locking.Registry
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB, locks *locking.Registry) WalletServicer {
	return &walletService{db: db, locks: locks}
}

// GetOrCreate returns the user's wallet, creating it with a fresh card
// number on first use.
func (s *walletService) GetOrCreate(userID string) (*models.Wallet, error) {
	wallet, err := s.GetByUserID(userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, apperrors.ErrWalletNotFound) {
		return nil, err
	}

	wallet = &models.Wallet{
		UserID:     userID,
		Currency:   "USD",
		Status:     models.WalletStatusActive,
		CardNumber: newCardNumber(),
	}
	if err := s.db.Create(wallet).Error; err != nil {
		// Lost a creation race; the existing wallet wins.
		if existing, getErr := s.GetByUserID(userID); getErr == nil {
			return existing, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return wallet, nil
}

// GetByUserID retrieves the user's wallet.
func (s *walletService) GetByUserID(userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &wallet, nil
}

// newCardNumber generates a display card number for a new wallet.
func newCardNumber() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "4242-TRIP-00000000"
	}
	n := binary.BigEndian.Uint32(buf[:]) % 100_000_000
	return fmt.Sprintf("4242-TRIP-%08d", n)
}

// accruePoints returns the reward points earned by a spend or deposit of
// amount minor units.
func accruePoints(amount int64, tripRelated bool) int64 {
	rate := int64(rewardRateDefaultPct)
	if tripRelated {
		rate = rewardRateTripPct
	}
	return amount * rate / 100
}

// AddFunds credits the wallet and appends an add_funds log entry, accruing
// reward points in the same atomic unit.
func (s *walletService) AddFunds(userID string, amount int64, description string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	unlock := s.locks.Lock("wallet:" + userID)
	defer unlock()

	wallet, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if wallet.Status != models.WalletStatusActive {
		return nil, apperrors.ErrWalletNotActive
	}

	points := accruePoints(amount, false)
	var entry *models.WalletTransaction
	err = s.withConflictRetry(func() error {
		var txErr error
		entry, txErr = s.applyMutation(wallet, amount, points, &models.WalletTransaction{
			Type:        models.WalletTxAddFunds,
			Amount:      amount,
			Description: description,
		})
		return txErr
	}, wallet)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Transfer moves amount from one user's wallet to another's as a single
// atomic unit; both legs commit or neither does. Locks are taken in
// ascending user-id order. A non-empty tripID marks the transfer
// trip-related, earning the sender the higher reward rate.
func (s *walletService) Transfer(fromUserID, toUserID string, amount int64, description, tripID string) (*models.WalletTransaction, error) {
	return s.TransferWith(fromUserID, toUserID, amount, description, tripID, nil)
}

// TransferWith moves funds like Transfer and additionally runs follow inside
// the same database transaction, so the caller's companion writes commit or
// roll back together with both wallet legs. follow may be nil.
func (s *walletService) TransferWith(fromUserID, toUserID string, amount int64, description, tripID string, follow func(tx *gorm.DB) error) (*models.WalletTransaction, error) {
	if fromUserID == toUserID {
		return nil, apperrors.ErrSameWalletTransfer
	}
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	unlock := s.locks.LockPair("wallet:"+fromUserID, "wallet:"+toUserID)
	defer unlock()

	from, err := s.GetByUserID(fromUserID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetOrCreate(toUserID)
	if err != nil {
		return nil, err
	}
	if from.Status != models.WalletStatusActive || to.Status != models.WalletStatusActive {
		return nil, apperrors.ErrWalletNotActive
	}

	points := accruePoints(amount, tripID != "")
	var outEntry *models.WalletTransaction
	err = s.withConflictRetry(func() error {
		if from.Balance < amount && !from.OverdraftEnabled {
			return apperrors.ErrInsufficientFunds
		}
		return s.db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			outEntry, txErr = s.applyMutationTx(tx, from, -amount, points, &models.WalletTransaction{
				Type:           models.WalletTxTransferOut,
				Amount:         amount,
				Description:    description,
				CounterpartyID: optionalID(toUserID),
				TripID:         optionalID(tripID),
			})
			if txErr != nil {
				return txErr
			}
			// Points accrue on the initiating leg only.
			_, txErr = s.applyMutationTx(tx, to, amount, 0, &models.WalletTransaction{
				Type:           models.WalletTxTransferIn,
				Amount:         amount,
				Description:    description,
				CounterpartyID: optionalID(fromUserID),
				TripID:         optionalID(tripID),
			})
			if txErr != nil {
				return txErr
			}
			if follow != nil {
				return follow(tx)
			}
			return nil
		})
	}, from, to)
	if err != nil {
		return nil, err
	}
	return outEntry, nil
}

// Debit withdraws funds with no receiving wallet, used by scheduled goal
// contributions. No reward points accrue.
func (s *walletService) Debit(userID string, amount int64, description string) (*models.WalletTransaction, error) {
	return s.DebitWith(userID, amount, description, nil)
}

// DebitWith withdraws funds and runs follow inside the same database
// transaction, so the withdrawal and the caller's companion writes commit
// or roll back together. follow may be nil.
func (s *walletService) DebitWith(userID string, amount int64, description string, follow func(tx *gorm.DB) error) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	unlock := s.locks.Lock("wallet:" + userID)
	defer unlock()

	wallet, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if wallet.Status != models.WalletStatusActive {
		return nil, apperrors.ErrWalletNotActive
	}

	var entry *models.WalletTransaction
	err = s.withConflictRetry(func() error {
		if wallet.Balance < amount && !wallet.OverdraftEnabled {
			return apperrors.ErrInsufficientFunds
		}
		return s.db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			entry, txErr = s.applyMutationTx(tx, wallet, -amount, 0, &models.WalletTransaction{
				Type:        models.WalletTxTransferOut,
				Amount:      amount,
				Description: description,
			})
			if txErr != nil {
				return txErr
			}
			if follow != nil {
				return follow(tx)
			}
			return nil
		})
	}, wallet)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RedeemRewards converts reward points to wallet balance at 1 point per
// minor unit.
func (s *walletService) RedeemRewards(userID string, points int64) (*models.WalletTransaction, error) {
	if points <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	unlock := s.locks.Lock("wallet:" + userID)
	defer unlock()

	wallet, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if wallet.Status != models.WalletStatusActive {
		return nil, apperrors.ErrWalletNotActive
	}
	var entry *models.WalletTransaction
	err = s.withConflictRetry(func() error {
		if wallet.RewardPoints < points {
			return apperrors.ErrInsufficientPoints
		}
		var txErr error
		entry, txErr = s.applyMutation(wallet, points, -points, &models.WalletTransaction{
			Type:        models.WalletTxRewardRedeem,
			Amount:      points,
			Description: "Reward redemption",
		})
		return txErr
	}, wallet)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetTransactions retrieves the wallet's transaction log, newest first.
func (s *walletService) GetTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.WalletTransaction], error) {
	wallet, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.WalletTransaction{}).Where("wallet_id = ?", wallet.ID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var entries []models.WalletTransaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// SetStatus changes the wallet lifecycle state.
func (s *walletService) SetStatus(userID string, status models.WalletStatus) (*models.Wallet, error) {
	unlock := s.locks.Lock("wallet:" + userID)
	defer unlock()

	wallet, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if wallet.Status == models.WalletStatusClosed {
		return nil, apperrors.ErrWalletNotActive
	}

	if err := s.db.Model(wallet).Update("status", status).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	wallet.Status = status
	return wallet, nil
}

// applyMutation runs one wallet mutation in its own database transaction.
func (s *walletService) applyMutation(wallet *models.Wallet, delta, points int64, entry *models.WalletTransaction) (*models.WalletTransaction, error) {
	var result *models.WalletTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.applyMutationTx(tx, wallet, delta, points, entry)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyMutationTx applies a balance delta and point accrual to a wallet and
// appends the log entry, all inside the caller's transaction. The balance
// update is a compare-and-set on the previously read balance; a lost race
// surfaces as Conflict for the retry loop.
func (s *walletService) applyMutationTx(tx *gorm.DB, wallet *models.Wallet, delta, points int64, entry *models.WalletTransaction) (*models.WalletTransaction, error) {
	newBalance := wallet.Balance + delta
	newPoints := wallet.RewardPoints + points
	newLifetime := wallet.LifetimePoints
	if points > 0 {
		newLifetime += points
	}

	res := tx.Model(&models.Wallet{}).
		Where("id = ? AND balance = ?", wallet.ID, wallet.Balance).
		Updates(map[string]interface{}{
			"balance":         newBalance,
			"reward_points":   newPoints,
			"lifetime_points": newLifetime,
		})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrConflict
	}
	wallet.Balance = newBalance
	wallet.RewardPoints = newPoints
	wallet.LifetimePoints = newLifetime

	entry.WalletID = wallet.ID
	entry.BalanceAfter = newBalance
	entry.PointsAccrued = points
	if err := tx.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return entry, nil
}

// withConflictRetry retries fn a bounded number of times when it loses an
// optimistic update, refreshing each wallet's state between attempts.
func (s *walletService) withConflictRetry(fn func() error, wallets ...*models.Wallet) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		for _, w := range wallets {
			if fresh, getErr := s.GetByUserID(w.UserID); getErr == nil {
				*w = *fresh
			}
		}
	}
	return err
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
