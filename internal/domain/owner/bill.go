package owner

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AutoPay funds a bill automatically from the given account once it falls due
type AutoPay struct {
	Enabled   bool      `json:"enabled"`
	AccountID uuid.UUID `json:"account_id"`
}

// Bill is a payable amount owed by the owner
type Bill struct {
	ID                uuid.UUID       `json:"id"`
	Payee             string          `json:"payee"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          shared.Currency `json:"currency"`
	DueDate           time.Time       `json:"due_date"`
	Category          shared.Category `json:"category"`
	IsPaid            bool            `json:"is_paid"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	PaidTransactionID *uuid.UUID      `json:"paid_transaction_id,omitempty"`
	AutoPay           *AutoPay        `json:"auto_pay,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// StatusAt derives the bill status at the given instant.
func (b *Bill) StatusAt(now time.Time) shared.BillStatus {
	switch {
	case b.IsPaid:
		return shared.BillStatusPaid
	case now.After(b.DueDate):
		return shared.BillStatusOverdue
	default:
		return shared.BillStatusPending
	}
}

// DueForAutoPay reports whether the bill should be paid by the auto-pay sweep.
func (b *Bill) DueForAutoPay(asOf time.Time) bool {
	return !b.IsPaid && b.AutoPay != nil && b.AutoPay.Enabled && !b.DueDate.After(asOf)
}

func (b *Bill) markPaid(txID uuid.UUID, now time.Time) {
	b.IsPaid = true
	b.PaidAt = &now
	b.PaidTransactionID = &txID
}
