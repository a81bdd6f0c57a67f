package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
	"github.com/shopspring/decimal"
)

// DepositRequest credits an account from outside the bank
type DepositRequest struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Description string
	Category    string
}

// WithdrawRequest debits an account to outside the bank
type WithdrawRequest struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Description string
	Category    string
}

// InternalTransferRequest moves money between two accounts of the same owner
type InternalTransferRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Description   string
}

// ExternalTransferRequest sends money to an IBAN outside the owner's accounts
type ExternalTransferRequest struct {
	FromAccountID   uuid.UUID
	DestinationIBAN string
	RecipientName   string
	Amount          decimal.Decimal
	Description     string
}

func (e *Engine) Deposit(ctx context.Context, ownerID uuid.UUID, req DepositRequest) (*Result, error) {
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	return e.execute(ctx, "deposit", ownerID, func(o *owner.Owner, res *Result) error {
		acc, err := activeAccount(o, req.AccountID)
		if err != nil {
			return err
		}
		if err := e.limits.CheckTransfer(req.Amount, acc.Currency); err != nil {
			return err
		}
		now := e.now()
		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:      shared.TransactionKindDeposit,
			Amount:    req.Amount,
			Currency:  acc.Currency,
			Timestamp: now,
		})
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		tx, err := o.Post(acc.ID, owner.Posting{
			Kind:        shared.TransactionKindDeposit,
			Amount:      req.Amount,
			Description: req.Description,
			Category:    shared.ParseCategory(req.Category, shared.CategoryOther),
		}, now)
		if err != nil {
			return err
		}
		res.addTransaction(tx, acc)
		return nil
	})
}

func (e *Engine) Withdraw(ctx context.Context, ownerID uuid.UUID, req WithdrawRequest) (*Result, error) {
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	return e.execute(ctx, "withdraw", ownerID, func(o *owner.Owner, res *Result) error {
		acc, err := activeAccount(o, req.AccountID)
		if err != nil {
			return err
		}
		if err := e.limits.CheckTransfer(req.Amount, acc.Currency); err != nil {
			return err
		}
		now := e.now()
		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:      shared.TransactionKindWithdraw,
			Amount:    req.Amount,
			Currency:  acc.Currency,
			Timestamp: now,
		})
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		tx, err := o.Post(acc.ID, owner.Posting{
			Kind:        shared.TransactionKindWithdraw,
			Amount:      req.Amount,
			Description: req.Description,
			Category:    shared.ParseCategory(req.Category, shared.CategoryOther),
		}, now)
		if err != nil {
			return err
		}
		res.addTransaction(tx, acc)
		return nil
	})
}

func (e *Engine) TransferInternal(ctx context.Context, ownerID uuid.UUID, req InternalTransferRequest) (*Result, error) {
	if req.FromAccountID == req.ToAccountID {
		return nil, shared.Errorf(shared.KindSameAccount, "cannot transfer from an account to itself")
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	return e.execute(ctx, "transfer_internal", ownerID, func(o *owner.Owner, res *Result) error {
		from, err := activeAccount(o, req.FromAccountID)
		if err != nil {
			return err
		}
		to, err := activeAccount(o, req.ToAccountID)
		if err != nil {
			return err
		}
		if from.Currency != to.Currency {
			return shared.Errorf(shared.KindCurrencyMismatch,
				"cannot transfer %s into a %s account; use an exchange", from.Currency, to.Currency)
		}
		if err := e.limits.CheckTransfer(req.Amount, from.Currency); err != nil {
			return err
		}
		now := e.now()
		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:         shared.TransactionKindTransferOut,
			Amount:       req.Amount,
			Currency:     from.Currency,
			Counterparty: to.IBAN,
			Timestamp:    now,
		})
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		out, err := o.Post(from.ID, owner.Posting{
			Kind:         shared.TransactionKindTransferOut,
			Amount:       req.Amount,
			Counterparty: to.IBAN,
			Description:  req.Description,
		}, now)
		if err != nil {
			return err
		}
		in, err := o.Post(to.ID, owner.Posting{
			Kind:         shared.TransactionKindTransferIn,
			Amount:       req.Amount,
			Counterparty: from.IBAN,
			Description:  req.Description,
		}, now)
		if err != nil {
			return err
		}
		res.addTransaction(out, from)
		res.addTransaction(in, to)
		return nil
	})
}

// TransferExternal debits the source account only. The destination is never
// resolved to a ledger account, even when the IBAN belongs to another owner
// of this bank.
func (e *Engine) TransferExternal(ctx context.Context, ownerID uuid.UUID, req ExternalTransferRequest) (*Result, error) {
	iban := owner.NormalizeIBAN(req.DestinationIBAN)
	if err := owner.ValidateIBAN(iban); err != nil {
		return nil, err
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	return e.execute(ctx, "transfer_external", ownerID, func(o *owner.Owner, res *Result) error {
		if o.AccountByIBAN(iban) != nil {
			return shared.ErrSelfTransferRejected
		}
		from, err := activeAccount(o, req.FromAccountID)
		if err != nil {
			return err
		}
		if r := o.RecipientByIBAN(iban); r != nil && r.Currency != "" && r.Currency != from.Currency {
			return shared.Errorf(shared.KindCurrencyMismatch,
				"recipient %s receives %s but the source account holds %s", r.Name, r.Currency, from.Currency)
		}
		if err := e.limits.CheckTransfer(req.Amount, from.Currency); err != nil {
			return err
		}
		now := e.now()
		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:         shared.TransactionKindTransferExternal,
			Amount:       req.Amount,
			Currency:     from.Currency,
			Counterparty: iban,
			Timestamp:    now,
		})
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		description := req.Description
		if name := strings.TrimSpace(req.RecipientName); name != "" && description == "" {
			description = "transfer to " + name
		}
		tx, err := o.Post(from.ID, owner.Posting{
			Kind:         shared.TransactionKindTransferExternal,
			Amount:       req.Amount,
			Counterparty: iban,
			Description:  description,
		}, now)
		if err != nil {
			return err
		}
		res.addTransaction(tx, from)
		return nil
	})
}
