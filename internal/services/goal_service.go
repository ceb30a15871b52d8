package services

import (
	"errors"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/locking"
	"triptribe/internal/logger"
	"triptribe/internal/models"
	"triptribe/internal/pagination"
	"triptribe/internal/split"
)

// goalService manages savings goals, manual contributions, and the scheduled
// auto-save sweep.
type goalService struct {
	db            *gorm.DB
	userService   UserServicer
	walletService WalletServicer
	locks         *locking.Registry
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, userService UserServicer, walletService WalletServicer, locks *locking.Registry) GoalServicer {
	return &goalService{
		db:            db,
		userService:   userService,
		walletService: walletService,
		locks:         locks,
	}
}

// CreateGoal creates a savings goal. Group goals include the creator in the
// member set whether listed or not. With auto-save enabled, the per-period
// amount is fixed at creation: target divided by the number of whole periods
// remaining until the deadline, at least one.
func (s *goalService) CreateGoal(creatorID string, req GoalRequest) (*models.SavingsGoal, error) {
	if req.Target <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	now := time.Now()
	if !req.Deadline.After(now) {
		return nil, apperrors.ErrDeadlinePassed
	}
	if req.AutoSave && req.Frequency.Period() == 0 {
		return nil, apperrors.ErrMissingSchedule
	}
	if req.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}

	memberIDs := []string{creatorID}
	if req.IsGroup {
		seen := map[string]bool{creatorID: true}
		for _, id := range req.MemberIDs {
			if !seen[id] {
				seen[id] = true
				memberIDs = append(memberIDs, id)
			}
		}
		sort.Strings(memberIDs)
		for _, id := range memberIDs {
			if _, err := s.userService.GetUserByID(id); err != nil {
				return nil, err
			}
		}
	}

	goal := &models.SavingsGoal{
		CreatorID: creatorID,
		Name:      req.Name,
		Target:    req.Target,
		Deadline:  req.Deadline,
		IsGroup:   req.IsGroup,
		Status:    models.GoalStatusActive,
		AutoSave:  req.AutoSave,
		Frequency: req.Frequency,
	}
	if req.AutoSave {
		period := req.Frequency.Period()
		periods := int64(req.Deadline.Sub(now) / period)
		if periods < 1 {
			periods = 1
		}
		goal.AutoSaveAmount = req.Target / periods
		if goal.AutoSaveAmount < 1 {
			goal.AutoSaveAmount = 1
		}
		due := now.Add(period)
		goal.NextDueAt = &due
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		for _, id := range memberIDs {
			member := &models.GoalMember{GoalID: goal.ID, UserID: id}
			if err := tx.Create(member).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrStorage, err)
			}
			goal.Members = append(goal.Members, *member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// GetGoalByID retrieves a goal with its members. Individual goals are
// visible only to their creator, group goals to their member set.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.SavingsGoal, error) {
	var goal models.SavingsGoal
	if err := s.db.Preload("Members").Where("id = ?", goalID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if goal.CreatorID != userID && !(goal.IsGroup && goal.HasMember(userID)) {
		return nil, apperrors.ErrForbidden
	}
	return &goal, nil
}

// GetUserGoals retrieves a paginated list of goals the user created or
// belongs to.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error) {
	page.Defaults()

	base := s.db.Model(&models.SavingsGoal{}).
		Joins("JOIN goal_members ON goal_members.goal_id = savings_goals.id").
		Where("goal_members.user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var goals []models.SavingsGoal
	if err := base.Preload("Members").
		Scopes(pagination.Paginate(page)).
		Order("savings_goals.created_at DESC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Contribute appends a manual contribution and transitions the goal to
// Completed when the accumulated amount reaches the target. The caller must
// be the creator, or a member when the goal is shared.
func (s *goalService) Contribute(goalID, userID string, amount int64) (*models.Contribution, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	unlock := s.locks.Lock("goal:" + goalID)
	defer unlock()

	var goal models.SavingsGoal
	if err := s.db.Preload("Members").Where("id = ?", goalID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if goal.IsGroup && !goal.HasMember(userID) {
		return nil, apperrors.ErrForbidden
	}
	if !goal.IsGroup && goal.CreatorID != userID {
		return nil, apperrors.ErrForbidden
	}
	if goal.Status != models.GoalStatusActive {
		return nil, apperrors.ErrGoalNotActive
	}

	contribution, err := s.appendContribution(&goal, userID, amount, models.ContributionSourceManual)
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

// appendContribution writes one contribution row and the goal's new
// accumulated amount atomically, completing the goal when it reaches target.
// Callers hold the goal lock.
func (s *goalService) appendContribution(goal *models.SavingsGoal, userID string, amount int64, source models.ContributionSource) (*models.Contribution, error) {
	var contribution *models.Contribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		contribution, txErr = s.appendContributionTx(tx, goal, userID, amount, source)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	applyContribution(goal, amount)
	return contribution, nil
}

// appendContributionTx writes one contribution row and the goal's new
// accumulated amount inside the caller's transaction, completing the goal
// when it reaches target. The in-memory goal is left untouched so a rolled
// back transaction can be retried; callers fold the committed amount in
// with applyContribution. Callers hold the goal lock.
func (s *goalService) appendContributionTx(tx *gorm.DB, goal *models.SavingsGoal, userID string, amount int64, source models.ContributionSource) (*models.Contribution, error) {
	contribution := &models.Contribution{
		GoalID: goal.ID,
		UserID: userID,
		Amount: amount,
		Source: source,
	}

	newAccumulated := goal.Accumulated + amount
	updates := map[string]interface{}{"accumulated": newAccumulated}
	if newAccumulated >= goal.Target {
		updates["status"] = models.GoalStatusCompleted
	}

	if err := tx.Create(contribution).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if err := tx.Model(&models.SavingsGoal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return contribution, nil
}

// applyContribution folds a committed contribution into the in-memory goal.
func applyContribution(goal *models.SavingsGoal, amount int64) {
	goal.Accumulated += amount
	if goal.Accumulated >= goal.Target {
		goal.Status = models.GoalStatusCompleted
	}
}

// CancelGoal transitions an active goal to Cancelled. Only the creator may
// cancel.
func (s *goalService) CancelGoal(userID, goalID string) (*models.SavingsGoal, error) {
	unlock := s.locks.Lock("goal:" + goalID)
	defer unlock()

	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.CreatorID != userID {
		return nil, apperrors.ErrForbidden
	}
	if goal.Status != models.GoalStatusActive {
		return nil, apperrors.ErrGoalNotActive
	}

	if err := s.db.Model(goal).Update("status", models.GoalStatusCancelled).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	goal.Status = models.GoalStatusCancelled
	return goal, nil
}

// GetProgress reports accumulation toward the target for one goal.
func (s *goalService) GetProgress(userID, goalID string) (*GoalProgress, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	remaining := goal.Target - goal.Accumulated
	if remaining < 0 {
		remaining = 0
	}
	pct := float64(goal.Accumulated) / float64(goal.Target) * 100
	if pct > 100 {
		pct = 100
	}

	return &GoalProgress{
		GoalID:      goal.ID,
		Target:      goal.Target,
		Accumulated: goal.Accumulated,
		Remaining:   remaining,
		Percentage:  pct,
		Status:      goal.Status,
	}, nil
}

// GetRecommendations suggests a daily saving pace for each of the user's
// active goals with time left before the deadline.
func (s *goalService) GetRecommendations(userID string, now time.Time) ([]SavingsRecommendation, error) {
	var goals []models.SavingsGoal
	if err := s.db.
		Joins("JOIN goal_members ON goal_members.goal_id = savings_goals.id").
		Where("goal_members.user_id = ? AND savings_goals.status = ?", userID, models.GoalStatusActive).
		Order("savings_goals.created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	recommendations := make([]SavingsRecommendation, 0, len(goals))
	for _, goal := range goals {
		remaining := goal.Target - goal.Accumulated
		if remaining <= 0 || !goal.Deadline.After(now) {
			continue
		}
		daysLeft := int(math.Ceil(goal.Deadline.Sub(now).Hours() / 24))
		if daysLeft < 1 {
			daysLeft = 1
		}
		perDay := remaining / int64(daysLeft)
		if remaining%int64(daysLeft) != 0 {
			perDay++
		}
		recommendations = append(recommendations, SavingsRecommendation{
			GoalID:    goal.ID,
			Name:      goal.Name,
			Remaining: remaining,
			DaysLeft:  daysLeft,
			PerDay:    perDay,
		})
	}
	return recommendations, nil
}

// RunScheduledContributions processes every active auto-save goal due at or
// before now: each responsible participant's equal share of the per-period
// amount is debited from their wallet into the goal. A participant whose
// wallet cannot cover the share is skipped and recorded; the sweep never
// stops for one failure. Goals are processed in creation order, participants
// in id order. Goals past their deadline short of target are expired first.
func (s *goalService) RunScheduledContributions(now time.Time) (*AutoSaveReport, error) {
	if err := s.expireOverdueGoals(now); err != nil {
		return nil, err
	}

	var goals []models.SavingsGoal
	if err := s.db.Preload("Members").
		Where("status = ? AND auto_save = ? AND next_due_at IS NOT NULL AND next_due_at <= ?",
			models.GoalStatusActive, true, now).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	report := &AutoSaveReport{}
	for i := range goals {
		s.runGoalCycle(&goals[i], now, report)
	}
	return report, nil
}

// runGoalCycle executes one auto-save cycle for a single goal.
func (s *goalService) runGoalCycle(goal *models.SavingsGoal, now time.Time, report *AutoSaveReport) {
	log := logger.Get()
	unlock := s.locks.Lock("goal:" + goal.ID)
	defer unlock()

	participants := []string{goal.CreatorID}
	if goal.IsGroup {
		participants = make([]string, 0, len(goal.Members))
		for _, m := range goal.Members {
			participants = append(participants, m.UserID)
		}
		sort.Strings(participants)
	}

	shares, err := split.Allocate(split.Request{
		Amount:       goal.AutoSaveAmount,
		Policy:       models.SplitPolicyEqual,
		Participants: participants,
	})
	if err != nil {
		log.Warnw("auto-save share computation failed", "goal_id", goal.ID, "error", err)
		return
	}

	for _, userID := range participants {
		share := shares[userID]
		if share <= 0 {
			continue
		}
		// The debit and the contribution row commit in one database
		// transaction; a failure on either side leaves the wallet untouched
		// and the participant skipped.
		var contribution *models.Contribution
		_, err := s.walletService.DebitWith(userID, share, "Auto-save: "+goal.Name, func(tx *gorm.DB) error {
			var txErr error
			contribution, txErr = s.appendContributionTx(tx, goal, userID, share, models.ContributionSourceAuto)
			return txErr
		})
		if err != nil {
			skip := models.SkippedContribution{
				GoalID: goal.ID,
				UserID: userID,
				Amount: share,
				Reason: skipReason(err),
			}
			if dbErr := s.db.Create(&skip).Error; dbErr != nil {
				log.Warnw("failed to record skipped contribution", "goal_id", goal.ID, "user_id", userID, "error", dbErr)
			}
			report.Skipped = append(report.Skipped, skip)
			continue
		}

		applyContribution(goal, share)
		report.Contributions = append(report.Contributions, *contribution)
		if goal.Status != models.GoalStatusActive {
			break
		}
	}

	// Advance the schedule one period so a late tick never double-charges.
	next := goal.NextDueAt.Add(goal.Frequency.Period())
	for !next.After(now) {
		next = next.Add(goal.Frequency.Period())
	}
	if err := s.db.Model(&models.SavingsGoal{}).Where("id = ?", goal.ID).Update("next_due_at", next).Error; err != nil {
		log.Warnw("failed to advance auto-save schedule", "goal_id", goal.ID, "error", err)
		return
	}
	goal.NextDueAt = &next
}

// expireOverdueGoals transitions active goals whose deadline has passed
// short of target to Expired.
func (s *goalService) expireOverdueGoals(now time.Time) error {
	err := s.db.Model(&models.SavingsGoal{}).
		Where("status = ? AND deadline < ? AND accumulated < target", models.GoalStatusActive, now).
		Update("status", models.GoalStatusExpired).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

func skipReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "WALLET_ERROR"
}
