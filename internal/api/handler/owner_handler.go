package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/engine"
)

// OwnerHandler handles owner, account and recipient management
type OwnerHandler struct {
	owners OwnerService
	logger *slog.Logger
	now    func() time.Time
}

func NewOwnerHandler(logger *slog.Logger, owners OwnerService) *OwnerHandler {
	return &OwnerHandler{
		owners: owners,
		logger: logger,
		now:    time.Now,
	}
}

// Create registers a new owner. The returned id is what callers send as X-Owner-ID.
func (h *OwnerHandler) Create(c *gin.Context) {
	var req CreateOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	o, err := h.owners.CreateOwner(c.Request.Context(), req.Name)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, mapOwnerToResponse(o, h.now()))
}

// Me returns the calling owner's snapshot
func (h *OwnerHandler) Me(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}

	o, err := h.owners.GetOwner(c.Request.Context(), id)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondOK(c, mapOwnerToResponse(o, h.now()))
}

func (h *OwnerHandler) OpenAccount(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	currency, err := shared.ParseCurrency(req.Currency)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	deposit, err := parseOptionalAmount(req.InitialDeposit)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	acc, res, err := h.owners.OpenAccount(c.Request.Context(), id, engine.OpenAccountRequest{
		Currency:       currency,
		Name:           req.Name,
		InitialDeposit: deposit,
	})
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	response := AccountResponse{Account: acc}
	if res != nil {
		response.Result = res
	}
	RespondCreated(c, response)
}

func (h *OwnerHandler) BlockAccount(c *gin.Context) {
	h.changeAccount(c, h.owners.BlockAccount)
}

func (h *OwnerHandler) UnblockAccount(c *gin.Context) {
	h.changeAccount(c, h.owners.UnblockAccount)
}

// CloseAccount closes an account with a zero balance; its history is kept
func (h *OwnerHandler) CloseAccount(c *gin.Context) {
	h.changeAccount(c, h.owners.CloseAccount)
}

type accountChange func(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error)

func (h *OwnerHandler) changeAccount(c *gin.Context, fn accountChange) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}

	acc, err := fn(c.Request.Context(), id, accountID)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondOK(c, acc)
}

func (h *OwnerHandler) SaveRecipient(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req SaveRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	var currency shared.Currency
	if req.Currency != "" {
		parsed, err := shared.ParseCurrency(req.Currency)
		if err != nil {
			RespondLedgerError(c, err)
			return
		}
		currency = parsed
	}

	recipient, err := h.owners.SaveRecipient(c.Request.Context(), id, engine.SaveRecipientRequest{
		Name:     req.Name,
		IBAN:     req.IBAN,
		Currency: currency,
	})
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, recipient)
}
