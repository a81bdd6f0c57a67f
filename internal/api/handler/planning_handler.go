package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/engine"
)

// PlanningHandler handles bills and savings goals. Dates without a time are
// read in the bank's local timezone.
type PlanningHandler struct {
	bills    BillService
	goals    GoalService
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewPlanningHandler(logger *slog.Logger, bills BillService, goals GoalService, location *time.Location) *PlanningHandler {
	if location == nil {
		location = time.Local
	}
	return &PlanningHandler{
		bills:    bills,
		goals:    goals,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *PlanningHandler) AddBill(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req AddBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	currency, err := shared.ParseCurrency(req.Currency)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	due, err := parseDate(req.DueDate, h.location)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	var autoPay *uuid.UUID
	if req.AutoPayAccountID != "" {
		accountID := mustUUID(req.AutoPayAccountID)
		autoPay = &accountID
	}

	bill, err := h.bills.AddBill(c.Request.Context(), id, engine.AddBillRequest{
		Payee:            req.Payee,
		Amount:           amount,
		Currency:         currency,
		DueDate:          due,
		Category:         req.Category,
		AutoPayAccountID: autoPay,
	})
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, mapBillToResponse(bill, h.now()))
}

func (h *PlanningHandler) PayBill(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	billID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PayBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.bills.PayBill(c.Request.Context(), id, engine.PayBillRequest{
		BillID:    billID,
		AccountID: mustUUID(req.AccountID),
	})
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, res)
}

func (h *PlanningHandler) CreateGoal(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	currency, err := shared.ParseCurrency(req.Currency)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	targetDate, err := parseDate(req.TargetDate, h.location)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	goal, err := h.goals.CreateGoal(c.Request.Context(), id, engine.CreateGoalRequest{
		Name:         req.Name,
		TargetAmount: target,
		Currency:     currency,
		TargetDate:   targetDate,
	})
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, goal)
}

func (h *PlanningHandler) Contribute(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	res, err := h.goals.Contribute(c.Request.Context(), id, engine.ContributionRequest{
		GoalID:    goalID,
		AccountID: mustUUID(req.AccountID),
		Amount:    amount,
	})
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, res)
}

func (h *PlanningHandler) AbandonGoal(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}

	goal, err := h.goals.AbandonGoal(c.Request.Context(), id, goalID)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondOK(c, goal)
}
