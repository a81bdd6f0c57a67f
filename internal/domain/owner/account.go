package owner

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Account is a single-currency balance with its own transaction history
type Account struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name,omitempty"`
	AccountNumber string               `json:"account_number"`
	IBAN          string               `json:"iban"`
	Currency      shared.Currency      `json:"currency"`
	Balance       decimal.Decimal      `json:"balance"`
	Status        shared.AccountStatus `json:"status"`
	Transactions  []*Transaction       `json:"transactions"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// IsActive reports whether the account accepts money movements.
func (a *Account) IsActive() bool {
	return a.Status == shared.AccountStatusActive
}

// CanDebit checks if the account has sufficient funds for a debit
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// LedgerBalance recomputes the balance from the transaction history.
func (a *Account) LedgerBalance() decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range a.Transactions {
		if tx.Status != shared.TransactionStatusCompleted {
			continue
		}
		sum = sum.Add(tx.SignedAmount())
	}
	return sum
}

func (a *Account) requireActive() error {
	if !a.IsActive() {
		return shared.Errorf(shared.KindAccountInactive, "account %s is %s", a.AccountNumber, a.Status)
	}
	return nil
}

// post applies p to the balance and appends the resulting transaction.
func (a *Account) post(p Posting, now time.Time) (*Transaction, error) {
	if !p.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if err := a.requireActive(); err != nil {
		return nil, err
	}
	if !p.Kind.IsCredit() && !a.CanDebit(p.Amount) {
		return nil, shared.Errorf(shared.KindInsufficientFunds,
			"insufficient funds: balance %s %s, requested %s", a.Balance.StringFixed(2), a.Currency, p.Amount.StringFixed(2))
	}

	category := p.Category
	if category == "" {
		category = defaultCategory(p.Kind)
	}
	tx := &Transaction{
		ID:               uuid.New(),
		AccountID:        a.ID,
		Kind:             p.Kind,
		Amount:           p.Amount,
		Currency:         a.Currency,
		Counterparty:     p.Counterparty,
		Description:      p.Description,
		ExchangeRate:     p.ExchangeRate,
		ConvertedAmount:  p.ConvertedAmount,
		OriginalAmount:   p.OriginalAmount,
		OriginalCurrency: p.OriginalCurrency,
		Status:           shared.TransactionStatusCompleted,
		Category:         category,
		Timestamp:        now,
	}
	a.Balance = a.Balance.Add(tx.SignedAmount())
	a.Transactions = append(a.Transactions, tx)
	a.UpdatedAt = now
	return tx, nil
}
