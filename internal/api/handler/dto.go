package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Amounts travel as decimal strings so no precision is lost in JSON numbers.

type CreateOwnerRequest struct {
	Name string `json:"name" binding:"required"`
}

type OpenAccountRequest struct {
	Currency       string `json:"currency" binding:"required,len=3"`
	Name           string `json:"name"`
	InitialDeposit string `json:"initial_deposit"`
}

type AmountRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type InternalTransferRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description"`
}

type ExternalTransferRequest struct {
	FromAccountID   string `json:"from_account_id" binding:"required,uuid"`
	DestinationIBAN string `json:"destination_iban" binding:"required"`
	RecipientName   string `json:"recipient_name"`
	Amount          string `json:"amount" binding:"required"`
	Description     string `json:"description"`
}

type ExchangeRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	OperationID   string `json:"operation_id"`
}

type AddBillRequest struct {
	Payee            string `json:"payee" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	Currency         string `json:"currency" binding:"required,len=3"`
	DueDate          string `json:"due_date" binding:"required"`
	Category         string `json:"category"`
	AutoPayAccountID string `json:"auto_pay_account_id" binding:"omitempty,uuid"`
}

type PayBillRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
}

type CreateGoalRequest struct {
	Name         string `json:"name" binding:"required"`
	TargetAmount string `json:"target_amount" binding:"required"`
	Currency     string `json:"currency" binding:"required,len=3"`
	TargetDate   string `json:"target_date" binding:"required"`
}

type ContributionRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required"`
}

type SaveRecipientRequest struct {
	Name     string `json:"name" binding:"required"`
	IBAN     string `json:"iban" binding:"required"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

// BillResponse adds the derived status to a bill
type BillResponse struct {
	*owner.Bill
	Status shared.BillStatus `json:"status"`
}

// OwnerResponse is the owner snapshot returned by GET /owners/me
type OwnerResponse struct {
	ID         uuid.UUID            `json:"id"`
	Name       string               `json:"name"`
	Accounts   []*owner.Account     `json:"accounts"`
	Bills      []BillResponse       `json:"bills"`
	Goals      []*owner.SavingsGoal `json:"goals"`
	Recipients []*owner.Recipient   `json:"recipients"`
	Version    int                  `json:"version"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// AccountResponse is returned when an account is opened
type AccountResponse struct {
	Account *owner.Account `json:"account"`
	Result  interface{}    `json:"result,omitempty"`
}

func mapOwnerToResponse(o *owner.Owner, now time.Time) OwnerResponse {
	bills := make([]BillResponse, 0, len(o.Bills))
	for _, b := range o.Bills {
		bills = append(bills, mapBillToResponse(b, now))
	}
	return OwnerResponse{
		ID:         o.ID,
		Name:       o.Name,
		Accounts:   o.Accounts,
		Bills:      bills,
		Goals:      o.Goals,
		Recipients: o.Recipients,
		Version:    o.Version,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func mapBillToResponse(b *owner.Bill, now time.Time) BillResponse {
	return BillResponse{Bill: b, Status: b.StatusAt(now)}
}
