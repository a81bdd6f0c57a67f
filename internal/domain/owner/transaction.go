package owner

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable record of one balance-affecting event.
// Amount is always positive and expressed in the account's currency; the
// sign comes from Kind.
type Transaction struct {
	ID               uuid.UUID                `json:"id"`
	AccountID        uuid.UUID                `json:"account_id"`
	Kind             shared.TransactionKind   `json:"kind"`
	Amount           decimal.Decimal          `json:"amount"`
	Currency         shared.Currency          `json:"currency"`
	Counterparty     string                   `json:"counterparty,omitempty"`
	Description      string                   `json:"description,omitempty"`
	ExchangeRate     *decimal.Decimal         `json:"exchange_rate,omitempty"`
	ConvertedAmount  *decimal.Decimal         `json:"converted_amount,omitempty"`
	OriginalAmount   *decimal.Decimal         `json:"original_amount,omitempty"`
	OriginalCurrency shared.Currency          `json:"original_currency,omitempty"`
	Status           shared.TransactionStatus `json:"status"`
	Category         shared.Category          `json:"category"`
	Timestamp        time.Time                `json:"timestamp"`
}

// SignedAmount returns the amount with the sign the kind applies to the balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Posting describes a transaction to append to an account.
type Posting struct {
	Kind             shared.TransactionKind
	Amount           decimal.Decimal
	Counterparty     string
	Description      string
	Category         shared.Category
	ExchangeRate     *decimal.Decimal
	ConvertedAmount  *decimal.Decimal
	OriginalAmount   *decimal.Decimal
	OriginalCurrency shared.Currency
}

func defaultCategory(kind shared.TransactionKind) shared.Category {
	switch kind {
	case shared.TransactionKindTransferIn, shared.TransactionKindTransferOut, shared.TransactionKindTransferExternal:
		return shared.CategoryTransfer
	case shared.TransactionKindBillPayment:
		return shared.CategoryBills
	case shared.TransactionKindExchangeIn, shared.TransactionKindExchangeOut:
		return shared.CategoryExchange
	case shared.TransactionKindGoalContribution:
		return shared.CategorySavings
	default:
		return shared.CategoryOther
	}
}
