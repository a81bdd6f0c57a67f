package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OpenAccountRequest opens a new account for an owner
type OpenAccountRequest struct {
	Currency       shared.Currency
	Name           string
	InitialDeposit decimal.Decimal
}

// AddBillRequest registers a bill, optionally paid automatically when due
type AddBillRequest struct {
	Payee            string
	Amount           decimal.Decimal
	Currency         shared.Currency
	DueDate          time.Time
	Category         string
	AutoPayAccountID *uuid.UUID
}

// CreateGoalRequest registers a savings goal
type CreateGoalRequest struct {
	Name         string
	TargetAmount decimal.Decimal
	Currency     shared.Currency
	TargetDate   time.Time
}

// SaveRecipientRequest stores an external payee for later transfers
type SaveRecipientRequest struct {
	Name     string
	IBAN     string
	Currency shared.Currency
}

// CreateOwner registers a new customer with no accounts.
func (e *Engine) CreateOwner(ctx context.Context, name string) (*owner.Owner, error) {
	o, err := owner.New(name, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.store.Create(ctx, o); err != nil {
		return nil, e.translate(e.logger, o.ID, err)
	}
	e.logger.Info("Owner created", "owner_id", o.ID.String())
	return o, nil
}

// GetOwner returns a snapshot of the aggregate with goal statuses projected to now.
func (e *Engine) GetOwner(ctx context.Context, ownerID uuid.UUID) (*owner.Owner, error) {
	o, err := e.store.Get(ctx, ownerID)
	if err != nil {
		return nil, e.translate(e.logger, ownerID, err)
	}
	o.RefreshGoalStatuses(e.now())
	return o, nil
}

func (e *Engine) OpenAccount(ctx context.Context, ownerID uuid.UUID, req OpenAccountRequest) (*owner.Account, *Result, error) {
	var acc *owner.Account
	res, err := e.execute(ctx, "open_account", ownerID, func(o *owner.Owner, res *Result) error {
		if req.InitialDeposit.IsPositive() {
			if err := e.limits.CheckTransfer(req.InitialDeposit, req.Currency); err != nil {
				return err
			}
		}
		a, err := o.OpenAccount(req.Currency, req.Name, req.InitialDeposit, e.now())
		if err != nil {
			return err
		}
		for _, tx := range a.Transactions {
			res.addTransaction(tx, a)
		}
		if len(a.Transactions) == 0 {
			res.Balances = append(res.Balances, AccountBalance{AccountID: a.ID, Currency: a.Currency, Balance: a.Balance})
		}
		acc = a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return acc, res, nil
}

// BlockAccount stops money movements on an account until it is unblocked.
func (e *Engine) BlockAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error) {
	return e.setAccountStatus(ctx, "block_account", ownerID, accountID, shared.AccountStatusBlocked)
}

func (e *Engine) UnblockAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error) {
	return e.setAccountStatus(ctx, "unblock_account", ownerID, accountID, shared.AccountStatusActive)
}

func (e *Engine) setAccountStatus(ctx context.Context, op string, ownerID, accountID uuid.UUID, status shared.AccountStatus) (*owner.Account, error) {
	var acc *owner.Account
	_, err := e.execute(ctx, op, ownerID, func(o *owner.Owner, _ *Result) error {
		a, err := o.SetAccountStatus(accountID, status, e.now())
		acc = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// CloseAccount closes a zero-balance account. Its history is kept.
func (e *Engine) CloseAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error) {
	var acc *owner.Account
	_, err := e.execute(ctx, "close_account", ownerID, func(o *owner.Owner, _ *Result) error {
		a, err := o.CloseAccount(accountID, e.now())
		acc = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (e *Engine) SaveRecipient(ctx context.Context, ownerID uuid.UUID, req SaveRecipientRequest) (*owner.Recipient, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, shared.Errorf(shared.KindInvalidRequest, "recipient name is required")
	}
	var rec *owner.Recipient
	_, err := e.execute(ctx, "save_recipient", ownerID, func(o *owner.Owner, _ *Result) error {
		r, err := o.SaveRecipient(req.Name, req.IBAN, req.Currency, e.now())
		rec = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) AddBill(ctx context.Context, ownerID uuid.UUID, req AddBillRequest) (*owner.Bill, error) {
	in := owner.BillInput{
		Payee:    req.Payee,
		Amount:   req.Amount,
		Currency: req.Currency,
		DueDate:  req.DueDate,
		Category: shared.Category(req.Category),
	}
	if req.AutoPayAccountID != nil {
		in.AutoPay = &owner.AutoPay{Enabled: true, AccountID: *req.AutoPayAccountID}
	}
	var bill *owner.Bill
	_, err := e.execute(ctx, "add_bill", ownerID, func(o *owner.Owner, _ *Result) error {
		b, err := o.AddBill(in, e.now())
		bill = b
		return err
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (e *Engine) CreateGoal(ctx context.Context, ownerID uuid.UUID, req CreateGoalRequest) (*owner.SavingsGoal, error) {
	var goal *owner.SavingsGoal
	_, err := e.execute(ctx, "create_goal", ownerID, func(o *owner.Owner, _ *Result) error {
		g, err := o.CreateGoal(req.Name, req.TargetAmount, req.Currency, req.TargetDate, e.now())
		goal = g
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (e *Engine) AbandonGoal(ctx context.Context, ownerID, goalID uuid.UUID) (*owner.SavingsGoal, error) {
	var goal *owner.SavingsGoal
	_, err := e.execute(ctx, "abandon_goal", ownerID, func(o *owner.Owner, _ *Result) error {
		g, err := o.AbandonGoal(goalID, e.now())
		goal = g
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}
