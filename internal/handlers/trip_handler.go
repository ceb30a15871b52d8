package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/models"
	"triptribe/internal/money"
	"triptribe/internal/pagination"
	"triptribe/internal/services"
)

// TripHandler handles trip, expense, balance, and settlement requests.
type TripHandler struct {
	tripService       services.TripServicer
	ledgerService     services.LedgerServicer
	settlementService services.SettlementServicer
	auditService      services.AuditServicer
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(
	tripService services.TripServicer,
	ledgerService services.LedgerServicer,
	settlementService services.SettlementServicer,
	auditService services.AuditServicer,
) *TripHandler {
	return &TripHandler{
		tripService:       tripService,
		ledgerService:     ledgerService,
		settlementService: settlementService,
		auditService:      auditService,
	}
}

// CreateTripRequest represents the request payload for creating a trip.
type CreateTripRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"max=500"`
	Currency    string   `json:"currency" binding:"omitempty,iso4217"`
	MemberIDs   []string `json:"member_ids" binding:"omitempty,dive,uuid"`
}

// AddMemberRequest represents the request payload for adding a trip member.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// RecordExpenseRequest represents the request payload for recording an
// expense. Amount and custom shares are decimal strings ("42.50").
type RecordExpenseRequest struct {
	PayerID     string             `json:"payer_id" binding:"omitempty,uuid"`
	Amount      string             `json:"amount" binding:"required"`
	Description string             `json:"description" binding:"max=500"`
	Policy      string             `json:"policy" binding:"required,split_policy"`
	Percentages map[string]float64 `json:"percentages" binding:"omitempty"`
	Amounts     map[string]string  `json:"amounts" binding:"omitempty"`
}

// TransferResponse represents one settling transfer in a plan.
type TransferResponse struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Amount string `json:"amount"`
}

// CreateTrip handles trip creation
// @Summary     Create a trip
// @Description Create a trip with the authenticated user and the given members as participants
// @Tags        trips
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTripRequest true "Trip details"
// @Success     201 {object} models.Trip "Trip created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trips [post]
func (h *TripHandler) CreateTrip(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	trip, err := h.tripService.CreateTrip(userID, req.Name, req.Description, req.Currency, req.MemberIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRIP", "trip", trip.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "members": len(trip.Members)})

	c.JSON(http.StatusCreated, gin.H{"trip": trip})
}

// GetTrips lists the user's trips
// @Summary     List trips
// @Description Get a paginated list of trips the authenticated user participates in
// @Tags        trips
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Trip] "Trips"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /trips [get]
func (h *TripHandler) GetTrips(c *gin.Context) {
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

	trips, err := h.tripService.GetUserTrips(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trips)
}

// GetTrip returns one trip with its members
// @Summary     Get a trip
// @Description Get a trip by ID; the caller must be a participant
// @Tags        trips
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} models.Trip "Trip"
// @Failure     403 {object} ErrorResponse "Not a participant"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	trip, err := h.tripService.GetTripByID(userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// AddMember adds a user to a trip
// @Summary     Add a trip member
// @Description Add a registered user to a trip's participant set
// @Tags        trips
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Param       request body AddMemberRequest true "New member"
// @Success     200 {object} models.Trip "Updated trip"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Trip or user not found"
// @Router      /trips/{id}/members [post]
func (h *TripHandler) AddMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	trip, err := h.tripService.AddMember(userID, tripID, req.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// RecordExpense records a shared expense
// @Summary     Record an expense
// @Description Record a shared expense under an equal, percentage, or custom split policy
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Param       request body RecordExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense recorded with allocations"
// @Failure     400 {object} ErrorResponse "Invalid amount or split"
// @Failure     403 {object} ErrorResponse "Not a participant"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/expenses [post]
func (h *TripHandler) RecordExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidAmount, err.Error()))
		return
	}

	var customAmounts map[string]int64
	if len(req.Amounts) > 0 {
		customAmounts = make(map[string]int64, len(req.Amounts))
		for id, s := range req.Amounts {
			share, err := money.Parse(s)
			if err != nil {
				respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidSplit, "invalid share for "+id))
				return
			}
			customAmounts[id] = share
		}
	}

	expense, err := h.ledgerService.RecordExpense(userID, tripID, services.ExpenseRequest{
		PayerID:     req.PayerID,
		Amount:      amount,
		Description: req.Description,
		Policy:      models.SplitPolicy(req.Policy),
		Percentages: req.Percentages,
		Amounts:     customAmounts,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "RECORD_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"trip_id": tripID, "amount": req.Amount, "policy": req.Policy})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses lists a trip's expenses
// @Summary     List expenses
// @Description Get a paginated list of a trip's expenses with allocations
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Expenses"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/expenses [get]
func (h *TripHandler) GetExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expenses, err := h.ledgerService.GetTripExpenses(userID, tripID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, expenses)
}

// VoidExpense voids a posted expense
// @Summary     Void an expense
// @Description Append a reversing allocation set for a posted expense; voiding twice fails
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Param       eid path string true "Expense ID"
// @Success     200 {object} map[string]string "Voided"
// @Failure     404 {object} ErrorResponse "Expense not found or already voided"
// @Router      /trips/{id}/expenses/{eid} [delete]
func (h *TripHandler) VoidExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	expenseID, err := parsePathID(c, "eid")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ledgerService.VoidExpense(userID, tripID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "VOID_EXPENSE", "expense", expenseID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"status": "voided"})
}

// GetBalances returns the trip's per-participant net balances
// @Summary     Get balances
// @Description Get the derived net balance per participant; the balances always sum to zero
// @Tags        balances
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} map[string]string "Participant to net balance"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/balances [get]
func (h *TripHandler) GetBalances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	balances, err := h.ledgerService.GetBalances(userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	formatted := make(map[string]string, len(balances))
	for id, b := range balances {
		formatted[id] = money.Format(b)
	}

	c.JSON(http.StatusOK, gin.H{"balances": formatted})
}

// PlanSettlement computes the minimal settling transfers
// @Summary     Plan settlement
// @Description Compute the ordered transfer list that zeroes the trip's balances; nothing is persisted
// @Tags        settlement
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} []TransferResponse "Settling transfers"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/settlement [get]
func (h *TripHandler) PlanSettlement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfers, err := h.settlementService.PlanSettlement(userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	plan := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		plan = append(plan, TransferResponse{
			FromID: t.FromID,
			ToID:   t.ToID,
			Amount: money.Format(t.Amount),
		})
	}

	c.JSON(http.StatusOK, gin.H{"transfers": plan})
}

// ExecuteSettlement executes the settlement plan through wallets
// @Summary     Execute settlement
// @Description Plan and execute the trip's settling transfers through participant wallets
// @Tags        settlement
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} []models.Settlement "Executed settlements"
// @Failure     400 {object} ErrorResponse "A debtor wallet has insufficient funds"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/settlement [post]
func (h *TripHandler) ExecuteSettlement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	executed, err := h.settlementService.ExecuteSettlement(userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "EXECUTE_SETTLEMENT", "trip", tripID, c.ClientIP(),
		map[string]interface{}{"transfers": len(executed)})

	c.JSON(http.StatusOK, gin.H{"settlements": executed})
}
