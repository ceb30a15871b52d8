package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"triptribe/internal/handlers"
	"triptribe/internal/locking"
	"triptribe/internal/logger"
	"triptribe/internal/middleware"
	"triptribe/internal/models"
	"triptribe/internal/services"
	"triptribe/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Goals  services.GoalServicer
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Trip{},
		&models.TripMember{},
		&models.Expense{},
		&models.Allocation{},
		&models.Settlement{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.SavingsGoal{},
		&models.GoalMember{},
		&models.Contribution{},
		&models.SkippedContribution{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	locks := locking.NewRegistry()
	userService := services.NewUserService(db)
	tripService := services.NewTripService(db, userService)
	walletService := services.NewWalletService(db, locks)
	ledgerService := services.NewLedgerService(db, tripService, locks)
	settlementService := services.NewSettlementService(db, ledgerService, walletService, locks)
	goalService := services.NewGoalService(db, userService, walletService, locks)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	tripHandler := handlers.NewTripHandler(tripService, ledgerService, settlementService, auditService)
	walletHandler := handlers.NewWalletHandler(walletService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	trips := protected.Group("/trips")
	trips.POST("", tripHandler.CreateTrip)
	trips.GET("", tripHandler.GetTrips)
	trips.GET("/:id", tripHandler.GetTrip)
	trips.POST("/:id/members", tripHandler.AddMember)
	trips.POST("/:id/expenses", tripHandler.RecordExpense)
	trips.GET("/:id/expenses", tripHandler.GetExpenses)
	trips.DELETE("/:id/expenses/:eid", tripHandler.VoidExpense)
	trips.GET("/:id/balances", tripHandler.GetBalances)
	trips.GET("/:id/settlement", tripHandler.PlanSettlement)
	trips.POST("/:id/settlement", tripHandler.ExecuteSettlement)

	wallet := protected.Group("/wallet")
	wallet.GET("", walletHandler.GetWallet)
	wallet.POST("/funds", walletHandler.AddFunds)
	wallet.POST("/transfers", walletHandler.Transfer)
	wallet.GET("/rewards", walletHandler.GetRewards)
	wallet.POST("/rewards/redeem", walletHandler.RedeemRewards)
	wallet.GET("/transactions", walletHandler.GetTransactions)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/recommendations", goalHandler.GetRecommendations)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.POST("/:id/contributions", goalHandler.Contribute)
	goals.POST("/:id/cancel", goalHandler.CancelGoal)

	return &testApp{DB: db, Router: router, Goals: goalService}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(string)
}

// addFunds credits the user's wallet through the API.
func (app *testApp) addFunds(t *testing.T, token, amount string) {
	t.Helper()
	rec := app.request("POST", "/api/v1/wallet/funds",
		fmt.Sprintf(`{"amount":%q,"description":"Top up"}`, amount), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add funds failed: %d %s", rec.Code, rec.Body.String())
	}
}

// walletBalance fetches the user's formatted wallet balance.
func (app *testApp) walletBalance(t *testing.T, token string) string {
	t.Helper()
	rec := app.request("GET", "/api/v1/wallet", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("get wallet failed: %d %s", rec.Code, rec.Body.String())
	}
	wallet := parseJSON(t, rec)["wallet"].(map[string]interface{})
	return wallet["balance"].(string)
}

// assertErrorCode asserts the response carries the given application error code.
func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}
