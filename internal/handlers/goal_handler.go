package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "triptribe/internal/errors"
	"triptribe/internal/models"
	"triptribe/internal/money"
	"triptribe/internal/pagination"
	"triptribe/internal/services"
)

// GoalHandler handles savings goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService}
}

// CreateGoalRequest represents the request payload for creating a goal.
// Target is a decimal string ("1500.00"); deadline is RFC 3339.
type CreateGoalRequest struct {
	Name      string    `json:"name" binding:"required,min=1,max=100"`
	Target    string    `json:"target" binding:"required"`
	Deadline  time.Time `json:"deadline" binding:"required"`
	IsGroup   bool      `json:"is_group"`
	MemberIDs []string  `json:"member_ids" binding:"omitempty,dive,uuid"`
	AutoSave  bool      `json:"auto_save"`
	Frequency string    `json:"frequency" binding:"omitempty,goal_frequency"`
}

// ContributeRequest represents the request payload for a contribution.
type ContributeRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// CreateGoal creates a savings goal
// @Summary     Create a savings goal
// @Description Create an individual or group savings goal, optionally with scheduled auto-save
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} models.SavingsGoal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid target, deadline, or schedule"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	target, err := money.Parse(req.Target)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidAmount, err.Error()))
		return
	}

	goal, err := h.goalService.CreateGoal(userID, services.GoalRequest{
		Name:      req.Name,
		Target:    target,
		Deadline:  req.Deadline,
		IsGroup:   req.IsGroup,
		MemberIDs: req.MemberIDs,
		AutoSave:  req.AutoSave,
		Frequency: models.GoalFrequency(req.Frequency),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_GOAL", "goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "target": req.Target, "auto_save": req.AutoSave})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetGoals lists the user's goals
// @Summary     List goals
// @Description Get a paginated list of goals the user created or belongs to
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.SavingsGoal] "Goals"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /goals [get]
func (h *GoalHandler) GetGoals(c *gin.Context) {
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

	goals, err := h.goalService.GetUserGoals(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, goals)
}

// GetGoal returns one goal with its progress
// @Summary     Get a goal
// @Description Get a goal by ID with its progress toward target
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} services.GoalProgress "Goal and progress"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoalByID(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	progress, err := h.goalService.GetProgress(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal, "progress": progress})
}

// Contribute appends a contribution to a goal
// @Summary     Contribute to a goal
// @Description Append a manual contribution; the goal completes when accumulated reaches target
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Param       request body ContributeRequest true "Contribution amount"
// @Success     201 {object} models.Contribution "Contribution appended"
// @Failure     400 {object} ErrorResponse "Invalid amount or inactive goal"
// @Failure     403 {object} ErrorResponse "Not a member of the group goal"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/contributions [post]
func (h *GoalHandler) Contribute(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidAmount, err.Error()))
		return
	}

	contribution, err := h.goalService.Contribute(goalID, userID, amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CONTRIBUTE", "goal", goalID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"contribution": contribution})
}

// CancelGoal cancels an active goal
// @Summary     Cancel a goal
// @Description Transition an active goal to cancelled; only the creator may cancel
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.SavingsGoal "Cancelled goal"
// @Failure     400 {object} ErrorResponse "Goal not active"
// @Failure     403 {object} ErrorResponse "Only the creator may cancel"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/cancel [post]
func (h *GoalHandler) CancelGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.CancelGoal(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CANCEL_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// GetRecommendations suggests saving paces for the user's active goals
// @Summary     Get savings recommendations
// @Description Get a suggested daily saving pace for each active goal with time left
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} []services.SavingsRecommendation "Recommendations"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /goals/recommendations [get]
func (h *GoalHandler) GetRecommendations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recommendations, err := h.goalService.GetRecommendations(userID, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}
