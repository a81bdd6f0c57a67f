package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/ledger/engine"
)

// OwnerService manages owners and their accounts and recipients
type OwnerService interface {
	CreateOwner(ctx context.Context, name string) (*owner.Owner, error)
	GetOwner(ctx context.Context, ownerID uuid.UUID) (*owner.Owner, error)
	OpenAccount(ctx context.Context, ownerID uuid.UUID, req engine.OpenAccountRequest) (*owner.Account, *engine.Result, error)
	BlockAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error)
	UnblockAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error)
	CloseAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error)
	SaveRecipient(ctx context.Context, ownerID uuid.UUID, req engine.SaveRecipientRequest) (*owner.Recipient, error)
}

// TransactionService moves money
type TransactionService interface {
	Deposit(ctx context.Context, ownerID uuid.UUID, req engine.DepositRequest) (*engine.Result, error)
	Withdraw(ctx context.Context, ownerID uuid.UUID, req engine.WithdrawRequest) (*engine.Result, error)
	TransferInternal(ctx context.Context, ownerID uuid.UUID, req engine.InternalTransferRequest) (*engine.Result, error)
	TransferExternal(ctx context.Context, ownerID uuid.UUID, req engine.ExternalTransferRequest) (*engine.Result, error)
	Exchange(ctx context.Context, ownerID uuid.UUID, req engine.ExchangeRequest) (*engine.Result, error)
}

// BillService registers and pays bills
type BillService interface {
	AddBill(ctx context.Context, ownerID uuid.UUID, req engine.AddBillRequest) (*owner.Bill, error)
	PayBill(ctx context.Context, ownerID uuid.UUID, req engine.PayBillRequest) (*engine.Result, error)
}

// GoalService manages savings goals
type GoalService interface {
	CreateGoal(ctx context.Context, ownerID uuid.UUID, req engine.CreateGoalRequest) (*owner.SavingsGoal, error)
	AbandonGoal(ctx context.Context, ownerID, goalID uuid.UUID) (*owner.SavingsGoal, error)
	Contribute(ctx context.Context, ownerID uuid.UUID, req engine.ContributionRequest) (*engine.Result, error)
}
