package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/ledger/engine"
)

// TransactionHandler handles money movements. Every success returns the
// created transactions, the new balances and any fraud warnings.
type TransactionHandler struct {
	transactions TransactionService
	logger       *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, transactions TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		logger:       logger,
	}
}

func (h *TransactionHandler) Deposit(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	res, err := h.transactions.Deposit(c.Request.Context(), id, engine.DepositRequest{
		AccountID:   accountID,
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
	})
	h.respond(c, res, err)
}

func (h *TransactionHandler) Withdraw(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	res, err := h.transactions.Withdraw(c.Request.Context(), id, engine.WithdrawRequest{
		AccountID:   accountID,
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
	})
	h.respond(c, res, err)
}

func (h *TransactionHandler) TransferInternal(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req InternalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	res, err := h.transactions.TransferInternal(c.Request.Context(), id, engine.InternalTransferRequest{
		FromAccountID: mustUUID(req.FromAccountID),
		ToAccountID:   mustUUID(req.ToAccountID),
		Amount:        amount,
		Description:   req.Description,
	})
	h.respond(c, res, err)
}

func (h *TransactionHandler) TransferExternal(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req ExternalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	res, err := h.transactions.TransferExternal(c.Request.Context(), id, engine.ExternalTransferRequest{
		FromAccountID:   mustUUID(req.FromAccountID),
		DestinationIBAN: req.DestinationIBAN,
		RecipientName:   req.RecipientName,
		Amount:          amount,
		Description:     req.Description,
	})
	h.respond(c, res, err)
}

func (h *TransactionHandler) Exchange(c *gin.Context) {
	id, ok := ownerID(c)
	if !ok {
		return
	}
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondLedgerError(c, err)
		return
	}

	res, err := h.transactions.Exchange(c.Request.Context(), id, engine.ExchangeRequest{
		FromAccountID: mustUUID(req.FromAccountID),
		ToAccountID:   mustUUID(req.ToAccountID),
		Amount:        amount,
		OperationID:   req.OperationID,
	})
	h.respond(c, res, err)
}

func (h *TransactionHandler) respond(c *gin.Context, res *engine.Result, err error) {
	if err != nil {
		RespondLedgerError(c, err)
		return
	}
	RespondCreated(c, res)
}
