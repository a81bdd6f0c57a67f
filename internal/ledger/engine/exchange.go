package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
	"github.com/retail-banking-ledger/internal/ledger/fx"
	"github.com/shopspring/decimal"
)

// ExchangeRequest converts money between two accounts of different currencies.
// OperationID keys the rate lock; one is generated when empty.
type ExchangeRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	OperationID   string
}

func (e *Engine) Exchange(ctx context.Context, ownerID uuid.UUID, req ExchangeRequest) (*Result, error) {
	if req.FromAccountID == req.ToAccountID {
		return nil, shared.Errorf(shared.KindSameAccount, "cannot exchange into the same account")
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	opID := req.OperationID
	if opID == "" {
		opID = uuid.NewString()
	}

	return e.execute(ctx, "exchange", ownerID, func(o *owner.Owner, res *Result) error {
		from, err := activeAccount(o, req.FromAccountID)
		if err != nil {
			return err
		}
		to, err := activeAccount(o, req.ToAccountID)
		if err != nil {
			return err
		}
		pair := fx.Pair{From: from.Currency, To: to.Currency}
		if err := pair.Validate(); err != nil {
			return err
		}

		now := e.now()
		if err := e.limits.CheckMinimumExchange(req.Amount, from.Currency); err != nil {
			return err
		}
		used := o.ExchangedOutSince(from.Currency, e.limits.StartOfDay(now))
		if err := e.limits.CheckDailyExchangeCap(req.Amount, used, from.Currency); err != nil {
			return err
		}
		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:      shared.TransactionKindExchangeOut,
			Amount:    req.Amount,
			Currency:  from.Currency,
			Timestamp: now,
		})

		lockCtx := context.WithoutCancel(ctx)
		if _, err := e.locks.Acquire(lockCtx, opID, pair); err != nil {
			return err
		}
		defer func() {
			if err := e.locks.Release(lockCtx, opID); err != nil {
				e.logger.Warn("Failed to release rate lock", "operation_id", opID, "error", err)
			}
		}()

		quoted, err := e.rates.Quote(pair.From, pair.To)
		if err != nil {
			return err
		}
		rate, err := e.locks.Pin(lockCtx, opID, quoted)
		if err != nil {
			return err
		}
		converted := to.Currency.Round(req.Amount.Mul(rate))
		if !converted.IsPositive() {
			return shared.Errorf(shared.KindBelowMinimumAmount,
				"%s %s converts to less than one minor unit of %s", req.Amount.String(), from.Currency, to.Currency)
		}
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		out, err := o.Post(from.ID, owner.Posting{
			Kind:            shared.TransactionKindExchangeOut,
			Amount:          req.Amount,
			Counterparty:    to.IBAN,
			ExchangeRate:    &rate,
			ConvertedAmount: &converted,
		}, now)
		if err != nil {
			return err
		}
		original := req.Amount
		in, err := o.Post(to.ID, owner.Posting{
			Kind:             shared.TransactionKindExchangeIn,
			Amount:           converted,
			Counterparty:     from.IBAN,
			ExchangeRate:     &rate,
			ConvertedAmount:  &converted,
			OriginalAmount:   &original,
			OriginalCurrency: from.Currency,
		}, now)
		if err != nil {
			return err
		}

		res.addTransaction(out, from)
		res.addTransaction(in, to)
		res.ExchangeRate = &rate
		res.ConvertedAmount = &converted
		return nil
	})
}
