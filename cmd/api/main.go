package main

import (
	"fmt"
	"net/http"
	"os"
	"triptribe/internal/config"
	"triptribe/internal/database"
	"triptribe/internal/handlers"
	"triptribe/internal/locking"
	"triptribe/internal/logger"
	"triptribe/internal/middleware"
	"triptribe/internal/scheduler"
	"triptribe/internal/services"
	"triptribe/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "triptribe/internal/docs" // Import swagger docs
)

// @title           TripTribe API
// @version         1.0
// @description     TripTribe is a shared trip ledger that tracks group expenses, derives balances, plans minimal settlements, and runs stored-value wallets with reward points and savings goals.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	locks := locking.NewRegistry()
	userService := services.NewUserService(db)
	tripService := services.NewTripService(db, userService)
	walletService := services.NewWalletService(db, locks)
	ledgerService := services.NewLedgerService(db, tripService, locks)
	settlementService := services.NewSettlementService(db, ledgerService, walletService, locks)
	goalService := services.NewGoalService(db, userService, walletService, locks)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	tripHandler := handlers.NewTripHandler(tripService, ledgerService, settlementService, auditService)
	walletHandler := handlers.NewWalletHandler(walletService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)

	// Start the auto-save scheduler
	autoSave := scheduler.New(goalService, appConfig.AutoSaveInterval, scheduler.RealClock{})
	autoSave.Start()
	defer autoSave.Stop()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Trip and ledger routes
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

	// Wallet routes
	wallet := protected.Group("/wallet")
	wallet.GET("", walletHandler.GetWallet)
	wallet.POST("/funds", walletHandler.AddFunds)
	wallet.POST("/transfers", walletHandler.Transfer)
	wallet.GET("/rewards", walletHandler.GetRewards)
	wallet.POST("/rewards/redeem", walletHandler.RedeemRewards)
	wallet.GET("/transactions", walletHandler.GetTransactions)

	// Savings goal routes
	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/recommendations", goalHandler.GetRecommendations)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.POST("/:id/contributions", goalHandler.Contribute)
	goals.POST("/:id/cancel", goalHandler.CancelGoal)

	log.Infof("Starting TripTribe backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
