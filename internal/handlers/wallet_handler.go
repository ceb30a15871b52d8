package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/money"
	"triptribe/internal/pagination"
	"triptribe/internal/services"
)

// WalletHandler handles wallet-related requests.
type WalletHandler struct {
	walletService services.WalletServicer
	auditService  services.AuditServicer
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService services.WalletServicer, auditService services.AuditServicer) *WalletHandler {
	return &WalletHandler{walletService: walletService, auditService: auditService}
}

// AddFundsRequest represents the request payload for adding funds. The
// amount is a decimal string ("25.00").
type AddFundsRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

// TransferRequest represents the request payload for a wallet transfer.
type TransferRequest struct {
	ToUserID    string `json:"to_user_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"max=500"`
	TripID      string `json:"trip_id" binding:"omitempty,uuid"`
}

// RedeemRequest represents the request payload for redeeming reward points.
type RedeemRequest struct {
	Points int64 `json:"points" binding:"required,gt=0"`
}

// WalletResponse represents the wallet in responses, with formatted amounts.
type WalletResponse struct {
	ID          string `json:"id"`
	Balance     string `json:"balance"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CardNumber  string `json:"card_number"`
	Points      int64  `json:"reward_points"`
	Tier        string `json:"tier"`
	LifetimePts int64  `json:"lifetime_points"`
}

// GetWallet returns the user's wallet, creating it on first use
// @Summary     Get wallet
// @Description Get the authenticated user's wallet, creating it on first use
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} WalletResponse "Wallet"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.GetOrCreate(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": WalletResponse{
		ID:          wallet.ID,
		Balance:     money.Format(wallet.Balance),
		Currency:    wallet.Currency,
		Status:      string(wallet.Status),
		CardNumber:  wallet.CardNumber,
		Points:      wallet.RewardPoints,
		Tier:        string(wallet.Tier()),
		LifetimePts: wallet.LifetimePoints,
	}})
}

// AddFunds credits the wallet
// @Summary     Add funds
// @Description Credit the wallet and accrue reward points atomically
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AddFundsRequest true "Amount to add"
// @Success     201 {object} models.WalletTransaction "Transaction appended"
// @Failure     400 {object} ErrorResponse "Invalid amount"
// @Failure     403 {object} ErrorResponse "Wallet frozen or closed"
// @Router      /wallet/funds [post]
func (h *WalletHandler) AddFunds(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidAmount, err.Error()))
		return
	}

	entry, err := h.walletService.AddFunds(userID, amount, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_FUNDS", "wallet", entry.WalletID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"transaction": entry})
}

// Transfer moves funds to another user's wallet
// @Summary     Transfer funds
// @Description Debit the sender and credit the receiver as a single atomic unit
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransferRequest true "Transfer details"
// @Success     201 {object} models.WalletTransaction "Sender's transfer_out entry"
// @Failure     400 {object} ErrorResponse "Invalid amount or insufficient funds"
// @Failure     404 {object} ErrorResponse "Sender wallet not found"
// @Router      /wallet/transfers [post]
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidAmount, err.Error()))
		return
	}

	entry, err := h.walletService.Transfer(userID, req.ToUserID, amount, req.Description, req.TripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "WALLET_TRANSFER", "wallet", entry.WalletID, c.ClientIP(),
		map[string]interface{}{"to": req.ToUserID, "amount": req.Amount, "trip_id": req.TripID})

	c.JSON(http.StatusCreated, gin.H{"transaction": entry})
}

// RedeemRewards converts reward points to balance
// @Summary     Redeem reward points
// @Description Convert reward points to wallet balance at 1 point = 0.01 currency unit
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RedeemRequest true "Points to redeem"
// @Success     201 {object} models.WalletTransaction "Redemption entry"
// @Failure     400 {object} ErrorResponse "Insufficient points"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallet/rewards/redeem [post]
func (h *WalletHandler) RedeemRewards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, err := h.walletService.RedeemRewards(userID, req.Points)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REDEEM_REWARDS", "wallet", entry.WalletID, c.ClientIP(),
		map[string]interface{}{"points": req.Points})

	c.JSON(http.StatusCreated, gin.H{"transaction": entry})
}

// GetRewards returns the wallet's reward summary
// @Summary     Get rewards
// @Description Get the wallet's reward points, lifetime points, and tier
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Reward summary"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallet/rewards [get]
func (h *WalletHandler) GetRewards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.walletService.GetOrCreate(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": gin.H{
		"points":          wallet.RewardPoints,
		"lifetime_points": wallet.LifetimePoints,
		"tier":            wallet.Tier(),
		"redeem_value":    money.Format(wallet.RewardPoints),
	}})
}

// GetTransactions lists the wallet's transaction log
// @Summary     List wallet transactions
// @Description Get the wallet's append-only transaction log, newest first
// @Tags        wallet
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.WalletTransaction] "Transactions"
// @Failure     404 {object} ErrorResponse "Wallet not found"
// @Router      /wallet/transactions [get]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entries, err := h.walletService.GetTransactions(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
