package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
)

// PayBillRequest settles a bill from one of the owner's accounts
type PayBillRequest struct {
	BillID    uuid.UUID
	AccountID uuid.UUID
}

// BillPaymentOrchestrator pays bills, converting at the current quote when the
// bill and the funding account differ in currency.
type BillPaymentOrchestrator struct {
	engine *Engine
}

func NewBillPaymentOrchestrator(e *Engine) *BillPaymentOrchestrator {
	return &BillPaymentOrchestrator{engine: e}
}

func (b *BillPaymentOrchestrator) PayBill(ctx context.Context, ownerID uuid.UUID, req PayBillRequest) (*Result, error) {
	e := b.engine
	return e.execute(ctx, "pay_bill", ownerID, func(o *owner.Owner, res *Result) error {
		bill, err := o.Bill(req.BillID)
		if err != nil {
			return err
		}
		if bill.IsPaid {
			return shared.Errorf(shared.KindBillAlreadyPaid, "bill %s was already paid", bill.ID)
		}
		acc, err := activeAccount(o, req.AccountID)
		if err != nil {
			return err
		}

		posting := owner.Posting{
			Kind:         shared.TransactionKindBillPayment,
			Amount:       bill.Amount,
			Counterparty: bill.Payee,
			Description:  "bill payment: " + bill.Payee,
			Category:     bill.Category,
		}
		if bill.Currency != acc.Currency {
			rate, err := e.rates.Quote(bill.Currency, acc.Currency)
			if err != nil {
				return err
			}
			converted := acc.Currency.Round(bill.Amount.Mul(rate))
			if !converted.IsPositive() {
				return shared.Errorf(shared.KindInvalidAmount, "bill amount converts to zero %s", acc.Currency)
			}
			original := bill.Amount
			posting.Amount = converted
			posting.ExchangeRate = &rate
			posting.ConvertedAmount = &converted
			posting.OriginalAmount = &original
			posting.OriginalCurrency = bill.Currency
			res.ExchangeRate = &rate
			res.ConvertedAmount = &converted
		}

		now := e.now()
		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:         shared.TransactionKindBillPayment,
			Amount:       posting.Amount,
			Currency:     acc.Currency,
			Counterparty: bill.Payee,
			Timestamp:    now,
		})
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		tx, err := o.Post(acc.ID, posting, now)
		if err != nil {
			return err
		}
		if err := o.MarkBillPaid(bill.ID, tx.ID, now); err != nil {
			return err
		}
		res.addTransaction(tx, acc)
		res.Bill = bill
		return nil
	})
}

// AutoPayReport lists the outcome of an auto-pay sweep for one owner
type AutoPayReport struct {
	Paid   []uuid.UUID
	Failed map[uuid.UUID]error
}

// PayDueAutoPayBills pays every unpaid auto-pay bill due on or before asOf.
// Each bill is its own atomic payment; one failure does not stop the rest.
func (b *BillPaymentOrchestrator) PayDueAutoPayBills(ctx context.Context, ownerID uuid.UUID, asOf time.Time) (*AutoPayReport, error) {
	o, err := b.engine.store.Get(ctx, ownerID)
	if err != nil {
		return nil, b.engine.translate(b.engine.logger, ownerID, err)
	}

	report := &AutoPayReport{Failed: make(map[uuid.UUID]error)}
	for _, bill := range o.DueAutoPayBills(asOf) {
		if ctx.Err() != nil {
			break
		}
		_, err := b.PayBill(ctx, ownerID, PayBillRequest{BillID: bill.ID, AccountID: bill.AutoPay.AccountID})
		if err != nil {
			b.engine.logger.Warn("Auto-pay failed",
				"owner_id", ownerID.String(),
				"bill_id", bill.ID.String(),
				"error", err,
			)
			report.Failed[bill.ID] = err
			continue
		}
		report.Paid = append(report.Paid, bill.ID)
	}
	return report, nil
}
