package services

import (
	"gorm.io/gorm"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/locking"
	"triptribe/internal/logger"
	"triptribe/internal/models"
	"triptribe/internal/settle"
)

// settlementService reduces a trip's net balances to a minimal transfer list
// and optionally executes it against participant wallets.
type settlementService struct {
	db            *gorm.DB
	ledgerService LedgerServicer
	walletService WalletServicer
	locks         *locking.Registry
}

// NewSettlementService creates a new SettlementServicer.
func NewSettlementService(db *gorm.DB, ledgerService LedgerServicer, walletService WalletServicer, locks *locking.Registry) SettlementServicer {
	return &settlementService{
		db:            db,
		ledgerService: ledgerService,
		walletService: walletService,
		locks:         locks,
	}
}

// PlanSettlement computes the ordered transfer list that zeroes the trip's
// current balances. Read-only; nothing is persisted.
func (s *settlementService) PlanSettlement(userID, tripID string) ([]settle.Transfer, error) {
	balances, err := s.ledgerService.GetBalances(userID, tripID)
	if err != nil {
		return nil, err
	}

	transfers, err := settle.Plan(balances)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transfers, nil
}

// ExecuteSettlement plans the trip's settlement and carries out every
// transfer through the debtors' wallets. Each Settlement row commits in the
// same database transaction as its wallet movement, so balance reads always
// reflect exactly the money that moved. The whole run is serialized per
// trip; the first failure aborts the remainder with already-executed
// transfers kept.
func (s *settlementService) ExecuteSettlement(userID, tripID string) ([]models.Settlement, error) {
	unlock := s.locks.Lock("settle:" + tripID)
	defer unlock()

	transfers, err := s.PlanSettlement(userID, tripID)
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	executed := make([]models.Settlement, 0, len(transfers))
	for _, t := range transfers {
		settlement := models.Settlement{
			TripID:     tripID,
			FromUserID: t.FromID,
			ToUserID:   t.ToID,
			Amount:     t.Amount,
		}
		_, err := s.walletService.TransferWith(t.FromID, t.ToID, t.Amount, "Trip settlement", tripID, func(tx *gorm.DB) error {
			if err := tx.Create(&settlement).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorage, err)
			}
			return nil
		})
		if err != nil {
			log.Warnw("settlement transfer failed",
				"trip_id", tripID,
				"from", t.FromID,
				"to", t.ToID,
				"amount", t.Amount,
				"error", err,
			)
			return executed, err
		}
		executed = append(executed, settlement)
	}

	return executed, nil
}
