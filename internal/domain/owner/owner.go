// Package owner holds the customer aggregate: accounts, their transaction
// history, bills, savings goals and saved recipients. Every mutation goes
// through the aggregate so the balance invariants are checked in one place.
package owner

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Owner is the aggregate root and the unit of atomic persistence
type Owner struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Accounts   []*Account     `json:"accounts"`
	Bills      []*Bill        `json:"bills"`
	Goals      []*SavingsGoal `json:"goals"`
	Recipients []*Recipient   `json:"recipients"`
	Version    int            `json:"version"` // For optimistic locking
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	events []shared.LedgerEvent
}

// New creates an owner with no accounts
func New(name string, now time.Time) (*Owner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Errorf(shared.KindInvalidRequest, "owner name cannot be empty")
	}
	return &Owner{
		ID:         uuid.New(),
		Name:       name,
		Accounts:   []*Account{},
		Bills:      []*Bill{},
		Goals:      []*SavingsGoal{},
		Recipients: []*Recipient{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Account returns the owner's account with the given id
func (o *Owner) Account(id uuid.UUID) (*Account, error) {
	for _, a := range o.Accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, shared.Errorf(shared.KindAccountNotFound, "account %s not found", id)
}

// AccountByIBAN returns the owner's account holding iban, or nil.
func (o *Owner) AccountByIBAN(iban string) *Account {
	iban = NormalizeIBAN(iban)
	for _, a := range o.Accounts {
		if a.IBAN == iban {
			return a
		}
	}
	return nil
}

// OpenAccount adds an active account in currency. A positive opening balance
// is posted as a deposit so the history always explains the balance.
func (o *Owner) OpenAccount(currency shared.Currency, name string, opening decimal.Decimal, now time.Time) (*Account, error) {
	if !currency.Valid() {
		return nil, shared.Errorf(shared.KindUnsupportedCurrency, "unsupported currency %q", currency)
	}
	if opening.IsNegative() {
		return nil, shared.ErrInvalidAmount
	}

	number := NewAccountNumber()
	acc := &Account{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		AccountNumber: number,
		IBAN:          IBANFor(number),
		Currency:      currency,
		Balance:       decimal.Zero,
		Status:        shared.AccountStatusActive,
		Transactions:  []*Transaction{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.Accounts = append(o.Accounts, acc)

	if opening.IsPositive() {
		if _, err := o.Post(acc.ID, Posting{
			Kind:        shared.TransactionKindDeposit,
			Amount:      opening,
			Description: "opening deposit",
		}, now); err != nil {
			o.Accounts = o.Accounts[:len(o.Accounts)-1]
			return nil, err
		}
	}
	o.touch(now)
	return acc, nil
}

// Post appends a transaction to the account and records a ledger event for it.
func (o *Owner) Post(accountID uuid.UUID, p Posting, now time.Time) (*Transaction, error) {
	acc, err := o.Account(accountID)
	if err != nil {
		return nil, err
	}
	tx, err := acc.post(p, now)
	if err != nil {
		return nil, err
	}
	o.events = append(o.events, shared.LedgerEvent{
		TransactionID:   tx.ID,
		OwnerID:         o.ID,
		AccountID:       acc.ID,
		Kind:            tx.Kind,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Counterparty:    tx.Counterparty,
		ExchangeRate:    tx.ExchangeRate,
		ConvertedAmount: tx.ConvertedAmount,
		Category:        tx.Category,
		Status:          tx.Status,
		BalanceAfter:    acc.Balance,
		Timestamp:       tx.Timestamp,
	})
	o.touch(now)
	return tx, nil
}

// SetAccountStatus blocks or re-activates an account. Closed accounts stay closed.
func (o *Owner) SetAccountStatus(id uuid.UUID, status shared.AccountStatus, now time.Time) (*Account, error) {
	acc, err := o.Account(id)
	if err != nil {
		return nil, err
	}
	if acc.Status == shared.AccountStatusClosed {
		return nil, shared.Errorf(shared.KindAccountInactive, "account %s is closed", acc.AccountNumber)
	}
	switch status {
	case shared.AccountStatusActive, shared.AccountStatusBlocked:
	default:
		return nil, shared.Errorf(shared.KindInvalidRequest, "cannot set account status to %q", status)
	}
	acc.Status = status
	acc.UpdatedAt = now
	o.touch(now)
	return acc, nil
}

// CloseAccount marks a zero-balance account closed. History is retained.
func (o *Owner) CloseAccount(id uuid.UUID, now time.Time) (*Account, error) {
	acc, err := o.Account(id)
	if err != nil {
		return nil, err
	}
	if acc.Status == shared.AccountStatusClosed {
		return acc, nil
	}
	if !acc.Balance.IsZero() {
		return nil, shared.Errorf(shared.KindAccountHasBalance,
			"account %s still holds %s %s", acc.AccountNumber, acc.Balance.StringFixed(2), acc.Currency)
	}
	acc.Status = shared.AccountStatusClosed
	acc.UpdatedAt = now
	o.touch(now)
	return acc, nil
}

// SaveRecipient stores an external payee. Saving the same IBAN again updates it.
func (o *Owner) SaveRecipient(name, iban string, currency shared.Currency, now time.Time) (*Recipient, error) {
	iban = NormalizeIBAN(iban)
	if err := ValidateIBAN(iban); err != nil {
		return nil, err
	}
	if currency != "" && !currency.Valid() {
		return nil, shared.Errorf(shared.KindUnsupportedCurrency, "unsupported currency %q", currency)
	}
	if o.AccountByIBAN(iban) != nil {
		return nil, shared.ErrSelfTransferRejected
	}
	if r := o.RecipientByIBAN(iban); r != nil {
		r.Name = strings.TrimSpace(name)
		r.Currency = currency
		o.touch(now)
		return r, nil
	}
	r := &Recipient{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		IBAN:      iban,
		Currency:  currency,
		CreatedAt: now,
	}
	o.Recipients = append(o.Recipients, r)
	o.touch(now)
	return r, nil
}

// RecipientByIBAN returns the saved recipient for iban, or nil.
func (o *Owner) RecipientByIBAN(iban string) *Recipient {
	iban = NormalizeIBAN(iban)
	for _, r := range o.Recipients {
		if r.IBAN == iban {
			return r
		}
	}
	return nil
}

// BillInput carries the fields needed to register a bill
type BillInput struct {
	Payee    string
	Amount   decimal.Decimal
	Currency shared.Currency
	DueDate  time.Time
	Category shared.Category
	AutoPay  *AutoPay
}

// AddBill registers a bill. Auto-pay must point at one of the owner's accounts.
func (o *Owner) AddBill(in BillInput, now time.Time) (*Bill, error) {
	if !in.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if !in.Currency.Valid() {
		return nil, shared.Errorf(shared.KindUnsupportedCurrency, "unsupported currency %q", in.Currency)
	}
	if in.DueDate.IsZero() {
		return nil, shared.Errorf(shared.KindInvalidRequest, "bill due date is required")
	}
	if in.AutoPay != nil && in.AutoPay.Enabled {
		if _, err := o.Account(in.AutoPay.AccountID); err != nil {
			return nil, err
		}
	}
	b := &Bill{
		ID:        uuid.New(),
		Payee:     strings.TrimSpace(in.Payee),
		Amount:    in.Amount,
		Currency:  in.Currency,
		DueDate:   in.DueDate,
		Category:  shared.ParseCategory(string(in.Category), shared.CategoryBills),
		AutoPay:   in.AutoPay,
		CreatedAt: now,
	}
	o.Bills = append(o.Bills, b)
	o.touch(now)
	return b, nil
}

// Bill returns the owner's bill with the given id
func (o *Owner) Bill(id uuid.UUID) (*Bill, error) {
	for _, b := range o.Bills {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, shared.Errorf(shared.KindBillNotFound, "bill %s not found", id)
}

// MarkBillPaid settles the bill with the transaction that paid it.
func (o *Owner) MarkBillPaid(id, txID uuid.UUID, now time.Time) error {
	b, err := o.Bill(id)
	if err != nil {
		return err
	}
	if b.IsPaid {
		return shared.ErrBillAlreadyPaid
	}
	b.markPaid(txID, now)
	o.touch(now)
	return nil
}

// DueAutoPayBills lists unpaid auto-pay bills due on or before asOf.
func (o *Owner) DueAutoPayBills(asOf time.Time) []*Bill {
	var due []*Bill
	for _, b := range o.Bills {
		if b.DueForAutoPay(asOf) {
			due = append(due, b)
		}
	}
	return due
}

// CreateGoal registers a savings goal
func (o *Owner) CreateGoal(name string, target decimal.Decimal, currency shared.Currency, targetDate, now time.Time) (*SavingsGoal, error) {
	if !target.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, shared.Errorf(shared.KindUnsupportedCurrency, "unsupported currency %q", currency)
	}
	if !targetDate.After(now) {
		return nil, shared.Errorf(shared.KindInvalidRequest, "goal target date must be in the future")
	}
	g := &SavingsGoal{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		Currency:      currency,
		TargetDate:    targetDate,
		Contributions: []Contribution{},
		CreatedAt:     now,
	}
	g.Status = g.StatusAt(now)
	o.Goals = append(o.Goals, g)
	o.touch(now)
	return g, nil
}

// Goal returns the owner's savings goal with the given id
func (o *Owner) Goal(id uuid.UUID) (*SavingsGoal, error) {
	for _, g := range o.Goals {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, shared.Errorf(shared.KindGoalNotFound, "savings goal %s not found", id)
}

// RecordContribution credits the goal with a contribution already debited from an account.
func (o *Owner) RecordContribution(goalID uuid.UUID, c Contribution) (*SavingsGoal, error) {
	g, err := o.Goal(goalID)
	if err != nil {
		return nil, err
	}
	if !g.AcceptsContributions(c.Timestamp) {
		return nil, shared.Errorf(shared.KindGoalClosed, "savings goal %q is %s", g.Name, g.StatusAt(c.Timestamp))
	}
	g.contribute(c)
	o.touch(c.Timestamp)
	return g, nil
}

// AbandonGoal stops a goal from accepting contributions
func (o *Owner) AbandonGoal(id uuid.UUID, now time.Time) (*SavingsGoal, error) {
	g, err := o.Goal(id)
	if err != nil {
		return nil, err
	}
	if g.StatusAt(now) == shared.GoalStatusCompleted {
		return nil, shared.Errorf(shared.KindGoalClosed, "savings goal %q is already completed", g.Name)
	}
	g.Status = shared.GoalStatusAbandoned
	o.touch(now)
	return g, nil
}

// RefreshGoalStatuses recomputes the stored status of every goal.
func (o *Owner) RefreshGoalStatuses(now time.Time) {
	for _, g := range o.Goals {
		g.Status = g.StatusAt(now)
	}
}

// ExchangedOutSince sums the owner's exchange-out amounts in currency since the given instant.
func (o *Owner) ExchangedOutSince(currency shared.Currency, since time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, a := range o.Accounts {
		if a.Currency != currency {
			continue
		}
		for _, tx := range a.Transactions {
			if tx.Kind == shared.TransactionKindExchangeOut &&
				tx.Status == shared.TransactionStatusCompleted &&
				!tx.Timestamp.Before(since) {
				total = total.Add(tx.Amount)
			}
		}
	}
	return total
}

// Verify checks that every balance is non-negative and equals its transaction history.
func (o *Owner) Verify() error {
	for _, a := range o.Accounts {
		if a.Balance.IsNegative() {
			return fmt.Errorf("account %s has negative balance %s", a.ID, a.Balance)
		}
		if ledger := a.LedgerBalance(); !ledger.Equal(a.Balance) {
			return fmt.Errorf("account %s balance %s does not match ledger %s", a.ID, a.Balance, ledger)
		}
	}
	return nil
}

// PendingEvents returns the ledger events recorded since the owner was loaded.
func (o *Owner) PendingEvents() []shared.LedgerEvent {
	return o.events
}

// ClearEvents drops the recorded events once they have been persisted.
func (o *Owner) ClearEvents() {
	o.events = nil
}

func (o *Owner) touch(now time.Time) {
	o.UpdatedAt = now
}

// Clone returns a deep copy of the aggregate. Transactions are immutable and shared.
func (o *Owner) Clone() *Owner {
	c := *o
	c.Accounts = make([]*Account, len(o.Accounts))
	for i, a := range o.Accounts {
		ac := *a
		ac.Transactions = append([]*Transaction(nil), a.Transactions...)
		c.Accounts[i] = &ac
	}
	c.Bills = make([]*Bill, len(o.Bills))
	for i, b := range o.Bills {
		bc := *b
		if b.AutoPay != nil {
			ap := *b.AutoPay
			bc.AutoPay = &ap
		}
		c.Bills[i] = &bc
	}
	c.Goals = make([]*SavingsGoal, len(o.Goals))
	for i, g := range o.Goals {
		gc := *g
		gc.Contributions = append([]Contribution(nil), g.Contributions...)
		c.Goals[i] = &gc
	}
	c.Recipients = make([]*Recipient, len(o.Recipients))
	for i, r := range o.Recipients {
		rc := *r
		c.Recipients[i] = &rc
	}
	c.events = append([]shared.LedgerEvent(nil), o.events...)
	return &c
}
