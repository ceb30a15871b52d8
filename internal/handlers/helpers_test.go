package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"triptribe/internal/models"
	"triptribe/internal/pagination"
	"triptribe/internal/services"
	"triptribe/internal/settle"
	"triptribe/internal/validator"
)

const testUserID = "018f0000-0000-7000-8000-000000000001"

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock services ---

type mockUserService struct {
	createUserFn            func(email, password, firstName, lastName string) (*models.User, error)
	getUserByEmailFn        func(email string) (*models.User, error)
	getUserByIDFn           func(id string) (*models.User, error)
	verifyPasswordFn        func(user *models.User, password string) bool
	storeRefreshTokenHashFn func(userID, tokenHash string) error
	getRefreshTokenHashFn   func(userID string) (string, error)
}

func (m *mockUserService) CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, firstName, lastName)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(user *models.User, password string) bool {
	if m.verifyPasswordFn != nil {
		return m.verifyPasswordFn(user, password)
	}
	return true
}

func (m *mockUserService) StoreRefreshTokenHash(userID, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(userID, tokenHash)
	}
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(userID string) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(userID)
	}
	return "", nil
}

type mockTripService struct {
	createTripFn   func(creatorID, name, description, currency string, memberIDs []string) (*models.Trip, error)
	getTripByIDFn  func(userID, tripID string) (*models.Trip, error)
	getUserTripsFn func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trip], error)
	addMemberFn    func(userID, tripID, newMemberID string) (*models.Trip, error)
}

func (m *mockTripService) CreateTrip(creatorID, name, description, currency string, memberIDs []string) (*models.Trip, error) {
	if m.createTripFn != nil {
		return m.createTripFn(creatorID, name, description, currency, memberIDs)
	}
	return &models.Trip{}, nil
}

func (m *mockTripService) GetTripByID(userID, tripID string) (*models.Trip, error) {
	if m.getTripByIDFn != nil {
		return m.getTripByIDFn(userID, tripID)
	}
	return &models.Trip{}, nil
}

func (m *mockTripService) GetUserTrips(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trip], error) {
	if m.getUserTripsFn != nil {
		return m.getUserTripsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Trip{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTripService) AddMember(userID, tripID, newMemberID string) (*models.Trip, error) {
	if m.addMemberFn != nil {
		return m.addMemberFn(userID, tripID, newMemberID)
	}
	return &models.Trip{}, nil
}

type mockLedgerService struct {
	recordExpenseFn   func(userID, tripID string, req services.ExpenseRequest) (*models.Expense, error)
	voidExpenseFn     func(userID, tripID, expenseID string) error
	getBalancesFn     func(userID, tripID string) (map[string]int64, error)
	getTripExpensesFn func(userID, tripID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

func (m *mockLedgerService) RecordExpense(userID, tripID string, req services.ExpenseRequest) (*models.Expense, error) {
	if m.recordExpenseFn != nil {
		return m.recordExpenseFn(userID, tripID, req)
	}
	return &models.Expense{}, nil
}

func (m *mockLedgerService) VoidExpense(userID, tripID, expenseID string) error {
	if m.voidExpenseFn != nil {
		return m.voidExpenseFn(userID, tripID, expenseID)
	}
	return nil
}

func (m *mockLedgerService) GetBalances(userID, tripID string) (map[string]int64, error) {
	if m.getBalancesFn != nil {
		return m.getBalancesFn(userID, tripID)
	}
	return map[string]int64{}, nil
}

func (m *mockLedgerService) GetTripExpenses(userID, tripID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if m.getTripExpensesFn != nil {
		return m.getTripExpensesFn(userID, tripID, page)
	}
	resp := pagination.NewPageResponse([]models.Expense{}, 1, 20, 0)
	return &resp, nil
}

type mockSettlementService struct {
	planSettlementFn    func(userID, tripID string) ([]settle.Transfer, error)
	executeSettlementFn func(userID, tripID string) ([]models.Settlement, error)
}

func (m *mockSettlementService) PlanSettlement(userID, tripID string) ([]settle.Transfer, error) {
	if m.planSettlementFn != nil {
		return m.planSettlementFn(userID, tripID)
	}
	return nil, nil
}

func (m *mockSettlementService) ExecuteSettlement(userID, tripID string) ([]models.Settlement, error) {
	if m.executeSettlementFn != nil {
		return m.executeSettlementFn(userID, tripID)
	}
	return nil, nil
}

type mockWalletService struct {
	getOrCreateFn     func(userID string) (*models.Wallet, error)
	getByUserIDFn     func(userID string) (*models.Wallet, error)
	addFundsFn        func(userID string, amount int64, description string) (*models.WalletTransaction, error)
	transferFn        func(fromUserID, toUserID string, amount int64, description, tripID string) (*models.WalletTransaction, error)
	debitFn           func(userID string, amount int64, description string) (*models.WalletTransaction, error)
	redeemRewardsFn   func(userID string, points int64) (*models.WalletTransaction, error)
	getTransactionsFn func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.WalletTransaction], error)
	setStatusFn       func(userID string, status models.WalletStatus) (*models.Wallet, error)
}

func (m *mockWalletService) GetOrCreate(userID string) (*models.Wallet, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(userID)
	}
	return &models.Wallet{}, nil
}

func (m *mockWalletService) GetByUserID(userID string) (*models.Wallet, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(userID)
	}
	return &models.Wallet{}, nil
}

func (m *mockWalletService) AddFunds(userID string, amount int64, description string) (*models.WalletTransaction, error) {
	if m.addFundsFn != nil {
		return m.addFundsFn(userID, amount, description)
	}
	return &models.WalletTransaction{}, nil
}

func (m *mockWalletService) Transfer(fromUserID, toUserID string, amount int64, description, tripID string) (*models.WalletTransaction, error) {
	if m.transferFn != nil {
		return m.transferFn(fromUserID, toUserID, amount, description, tripID)
	}
	return &models.WalletTransaction{}, nil
}

func (m *mockWalletService) TransferWith(fromUserID, toUserID string, amount int64, description, tripID string, follow func(tx *gorm.DB) error) (*models.WalletTransaction, error) {
	return m.Transfer(fromUserID, toUserID, amount, description, tripID)
}

func (m *mockWalletService) Debit(userID string, amount int64, description string) (*models.WalletTransaction, error) {
	if m.debitFn != nil {
		return m.debitFn(userID, amount, description)
	}
	return &models.WalletTransaction{}, nil
}

func (m *mockWalletService) DebitWith(userID string, amount int64, description string, follow func(tx *gorm.DB) error) (*models.WalletTransaction, error) {
	return m.Debit(userID, amount, description)
}

func (m *mockWalletService) RedeemRewards(userID string, points int64) (*models.WalletTransaction, error) {
	if m.redeemRewardsFn != nil {
		return m.redeemRewardsFn(userID, points)
	}
	return &models.WalletTransaction{}, nil
}

func (m *mockWalletService) GetTransactions(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.WalletTransaction], error) {
	if m.getTransactionsFn != nil {
		return m.getTransactionsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.WalletTransaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockWalletService) SetStatus(userID string, status models.WalletStatus) (*models.Wallet, error) {
	if m.setStatusFn != nil {
		return m.setStatusFn(userID, status)
	}
	return &models.Wallet{}, nil
}

type mockGoalService struct {
	createGoalFn                func(creatorID string, req services.GoalRequest) (*models.SavingsGoal, error)
	getGoalByIDFn               func(userID, goalID string) (*models.SavingsGoal, error)
	getUserGoalsFn              func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error)
	contributeFn                func(goalID, userID string, amount int64) (*models.Contribution, error)
	cancelGoalFn                func(userID, goalID string) (*models.SavingsGoal, error)
	getProgressFn               func(userID, goalID string) (*services.GoalProgress, error)
	getRecommendationsFn        func(userID string, now time.Time) ([]services.SavingsRecommendation, error)
	runScheduledContributionsFn func(now time.Time) (*services.AutoSaveReport, error)
}

func (m *mockGoalService) CreateGoal(creatorID string, req services.GoalRequest) (*models.SavingsGoal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(creatorID, req)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) GetGoalByID(userID, goalID string) (*models.SavingsGoal, error) {
	if m.getGoalByIDFn != nil {
		return m.getGoalByIDFn(userID, goalID)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SavingsGoal], error) {
	if m.getUserGoalsFn != nil {
		return m.getUserGoalsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.SavingsGoal{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockGoalService) Contribute(goalID, userID string, amount int64) (*models.Contribution, error) {
	if m.contributeFn != nil {
		return m.contributeFn(goalID, userID, amount)
	}
	return &models.Contribution{}, nil
}

func (m *mockGoalService) CancelGoal(userID, goalID string) (*models.SavingsGoal, error) {
	if m.cancelGoalFn != nil {
		return m.cancelGoalFn(userID, goalID)
	}
	return &models.SavingsGoal{}, nil
}

func (m *mockGoalService) GetProgress(userID, goalID string) (*services.GoalProgress, error) {
	if m.getProgressFn != nil {
		return m.getProgressFn(userID, goalID)
	}
	return &services.GoalProgress{}, nil
}

func (m *mockGoalService) GetRecommendations(userID string, now time.Time) ([]services.SavingsRecommendation, error) {
	if m.getRecommendationsFn != nil {
		return m.getRecommendationsFn(userID, now)
	}
	return nil, nil
}

func (m *mockGoalService) RunScheduledContributions(now time.Time) (*services.AutoSaveReport, error) {
	if m.runScheduledContributionsFn != nil {
		return m.runScheduledContributionsFn(now)
	}
	return &services.AutoSaveReport{}, nil
}

type mockAuditService struct{}

func (m *mockAuditService) Log(_, _, _, _, _ string, _ map[string]interface{}) {}

// verify interface compliance
var (
	_ services.UserServicer       = (*mockUserService)(nil)
	_ services.TripServicer       = (*mockTripService)(nil)
	_ services.LedgerServicer     = (*mockLedgerService)(nil)
	_ services.SettlementServicer = (*mockSettlementService)(nil)
	_ services.WalletServicer     = (*mockWalletService)(nil)
	_ services.GoalServicer       = (*mockGoalService)(nil)
	_ services.AuditServicer      = (*mockAuditService)(nil)
)
