package services

import (
	"errors"
	"sort"

	"gorm.io/gorm"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/locking"
	"triptribe/internal/models"
	"triptribe/internal/pagination"
	"triptribe/internal/split"
)

// ledgerService maintains the shared trip ledger. Expenses and their
// allocations form an append-only log; balances are always derived from it,
// never stored.
type ledgerService struct {
	db          *gorm.DB
	tripService TripServicer
	locks       *locking.Registry
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, tripService TripServicer, locks *locking.Registry) LedgerServicer {
	return &ledgerService{
		db:          db,
		tripService: tripService,
		locks:       locks,
	}
}

// RecordExpense records a shared expense and its per-participant allocations
// as a single atomic unit. Nothing is written when the split does not
// reconcile.
func (s *ledgerService) RecordExpense(userID, tripID string, req ExpenseRequest) (*models.Expense, error) {
	trip, err := s.tripService.GetTripByID(userID, tripID)
	if err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.PayerID == "" {
		req.PayerID = userID
	}
	if !trip.HasMember(req.PayerID) {
		return nil, apperrors.WithMessage(apperrors.ErrNotParticipant, "payer is not a trip participant")
	}

	participants, err := s.splitParticipants(trip, req)
	if err != nil {
		return nil, err
	}

	shares, err := split.Allocate(split.Request{
		Amount:       req.Amount,
		Policy:       req.Policy,
		Participants: participants,
		Percentages:  req.Percentages,
		Amounts:      req.Amounts,
	})
	if err != nil {
		return nil, mapSplitError(err)
	}

	unlock := s.locks.Lock("trip:" + tripID)
	defer unlock()

	expense := &models.Expense{
		TripID:      trip.ID,
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		Description: req.Description,
		Policy:      req.Policy,
		Status:      models.ExpenseStatusPosted,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(expense).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		for _, id := range participants {
			alloc := &models.Allocation{
				ExpenseID:     expense.ID,
				TripID:        trip.ID,
				ParticipantID: id,
				Amount:        shares[id],
				Kind:          models.AllocationKindCharge,
			}
			if err := tx.Create(alloc).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorage, err)
			}
			expense.Allocations = append(expense.Allocations, *alloc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expense, nil
}

// splitParticipants resolves which members a split applies to: every trip
// member for equal splits, the share map's keys otherwise. Every named
// participant must belong to the trip.
func (s *ledgerService) splitParticipants(trip *models.Trip, req ExpenseRequest) ([]string, error) {
	switch req.Policy {
	case models.SplitPolicyEqual:
		return trip.MemberIDs(), nil
	case models.SplitPolicyPercentage:
		ids := make([]string, 0, len(req.Percentages))
		for id := range req.Percentages {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if !trip.HasMember(id) {
				return nil, apperrors.WithMessage(apperrors.ErrNotParticipant, "share names a non-participant")
			}
		}
		return ids, nil
	case models.SplitPolicyCustom:
		ids := make([]string, 0, len(req.Amounts))
		for id := range req.Amounts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if !trip.HasMember(id) {
				return nil, apperrors.WithMessage(apperrors.ErrNotParticipant, "share names a non-participant")
			}
		}
		return ids, nil
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "unknown split policy")
	}
}

func mapSplitError(err error) error {
	switch {
	case errors.Is(err, split.ErrInvalidAmount):
		return apperrors.ErrInvalidAmount
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidSplit, err.Error())
	}
}

// VoidExpense reverses a posted expense by appending negating allocation
// rows. A second void on the same expense fails NotFound; the original
// charge rows are never mutated.
func (s *ledgerService) VoidExpense(userID, tripID, expenseID string) error {
	if _, err := s.tripService.GetTripByID(userID, tripID); err != nil {
		return err
	}

	unlock := s.locks.Lock("trip:" + tripID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var expense models.Expense
		if err := tx.Preload("Allocations", "kind = ?", models.AllocationKindCharge).
			Where("id = ? AND trip_id = ?", expenseID, tripID).
			First(&expense).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrExpenseNotFound
			}
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		if expense.Status != models.ExpenseStatusPosted {
			return apperrors.WithMessage(apperrors.ErrExpenseNotFound, "expense already voided")
		}

		res := tx.Model(&models.Expense{}).
			Where("id = ? AND status = ?", expense.ID, models.ExpenseStatusPosted).
			Update("status", models.ExpenseStatusVoided)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrStorage, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrExpenseNotFound
		}

		for _, alloc := range expense.Allocations {
			reversal := &models.Allocation{
				ExpenseID:     expense.ID,
				TripID:        expense.TripID,
				ParticipantID: alloc.ParticipantID,
				Amount:        -alloc.Amount,
				Kind:          models.AllocationKindReversal,
			}
			if err := tx.Create(reversal).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorage, err)
			}
		}
		return nil
	})
}

// GetBalances derives the per-participant net balances for a trip: what each
// member paid on posted expenses minus what allocations charge them, with
// executed settlements folded in. The nets always sum to zero.
func (s *ledgerService) GetBalances(userID, tripID string) (map[string]int64, error) {
	trip, err := s.tripService.GetTripByID(userID, tripID)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]int64, len(trip.Members))
	for _, id := range trip.MemberIDs() {
		balances[id] = 0
	}

	type sumRow struct {
		UserID string
		Total  int64
	}

	var paid []sumRow
	if err := s.db.Model(&models.Expense{}).
		Select("payer_id AS user_id, COALESCE(SUM(amount), 0) AS total").
		Where("trip_id = ? AND status = ?", tripID, models.ExpenseStatusPosted).
		Group("payer_id").
		Scan(&paid).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	for _, row := range paid {
		balances[row.UserID] += row.Total
	}

	// Reversal rows carry negative amounts, so voided expenses net to zero.
	var owed []sumRow
	if err := s.db.Model(&models.Allocation{}).
		Select("participant_id AS user_id, COALESCE(SUM(amount), 0) AS total").
		Where("trip_id = ?", tripID).
		Group("participant_id").
		Scan(&owed).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	for _, row := range owed {
		balances[row.UserID] -= row.Total
	}

	// An executed settlement counts as the debtor paying and the creditor
	// being charged, pulling both nets toward zero.
	var settlements []models.Settlement
	if err := s.db.Where("trip_id = ?", tripID).Find(&settlements).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	for _, st := range settlements {
		balances[st.FromUserID] += st.Amount
		balances[st.ToUserID] -= st.Amount
	}

	return balances, nil
}

// GetTripExpenses retrieves a paginated list of a trip's expenses with their
// allocations, newest first.
func (s *ledgerService) GetTripExpenses(userID, tripID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if _, err := s.tripService.GetTripByID(userID, tripID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Expense{}).Where("trip_id = ?", tripID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var expenses []models.Expense
	if err := base.Preload("Allocations").
		Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}
