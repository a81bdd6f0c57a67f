// Package engine implements the ledger's money movements. Every operation is
// validated, scored and applied to one owner aggregate inside a single call
// to the owner repository's Update, so it either commits completely or leaves
// the books untouched.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
	"github.com/retail-banking-ledger/internal/ledger/fx"
	"github.com/retail-banking-ledger/internal/ledger/limits"
	"github.com/shopspring/decimal"
)

// FraudRecorder scores an activity against the owner's recent history
type FraudRecorder interface {
	Record(ctx context.Context, ownerID uuid.UUID, act fraud.Activity) []fraud.Warning
}

// Quoter returns the current rate for a currency pair
type Quoter interface {
	Quote(from, to shared.Currency) (decimal.Decimal, error)
}

// Metrics observes completed operations. Outcome is "ok" or the error kind.
type Metrics interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, time.Duration) {}

// Dependencies groups the collaborators of the engine
type Dependencies struct {
	Store   owner.Repository
	Limits  *limits.Policy
	Fraud   FraudRecorder
	Rates   Quoter
	Locks   fx.RateLocker
	Metrics Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Engine executes money movements against owner aggregates
type Engine struct {
	store   owner.Repository
	limits  *limits.Policy
	fraud   FraudRecorder
	rates   Quoter
	locks   fx.RateLocker
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func New(deps Dependencies) *Engine {
	e := &Engine{
		store:   deps.Store,
		limits:  deps.Limits,
		fraud:   deps.Fraud,
		rates:   deps.Rates,
		locks:   deps.Locks,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Clock,
	}
	if e.limits == nil {
		e.limits = limits.NewPolicy(nil, time.Local)
	}
	if e.locks == nil {
		e.locks = fx.NewMemoryRateLock(fx.DefaultLockTTL)
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// AccountBalance is the balance of one account after an operation
type AccountBalance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Currency  shared.Currency `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
}

// Result is returned by every successful money movement
type Result struct {
	Transactions    []*owner.Transaction `json:"transactions"`
	Balances        []AccountBalance     `json:"balances"`
	ExchangeRate    *decimal.Decimal     `json:"exchange_rate,omitempty"`
	ConvertedAmount *decimal.Decimal     `json:"converted_amount,omitempty"`
	Bill            *owner.Bill          `json:"bill,omitempty"`
	Goal            *owner.SavingsGoal   `json:"goal,omitempty"`
	Warnings        []fraud.Warning      `json:"warnings,omitempty"`
}

func (r *Result) addTransaction(tx *owner.Transaction, acc *owner.Account) {
	r.Transactions = append(r.Transactions, tx)
	for i := range r.Balances {
		if r.Balances[i].AccountID == acc.ID {
			r.Balances[i].Balance = acc.Balance
			return
		}
	}
	r.Balances = append(r.Balances, AccountBalance{AccountID: acc.ID, Currency: acc.Currency, Balance: acc.Balance})
}

// execute runs fn against the owner aggregate inside one atomic update. The
// commit itself is detached from ctx: once mutation starts it is not cancelled.
func (e *Engine) execute(ctx context.Context, operation string, ownerID uuid.UUID, fn func(o *owner.Owner, res *Result) error) (*Result, error) {
	start := time.Now()
	logger := e.logger.With("operation", operation, "owner_id", ownerID.String())

	var res *Result
	err := checkDeadline(ctx)
	if err == nil {
		err = e.store.Update(context.WithoutCancel(ctx), ownerID, func(o *owner.Owner) error {
			res = &Result{}
			return fn(o, res)
		})
	}
	err = e.translate(logger, ownerID, err)

	outcome := "ok"
	if err != nil {
		outcome = string(shared.KindOf(err))
	}
	e.metrics.ObserveOperation(operation, outcome, time.Since(start))

	if err != nil {
		logger.Info("Ledger operation rejected", "kind", outcome, "error", err.Error())
		return nil, err
	}
	logger.Info("Ledger operation committed",
		"transactions", len(res.Transactions),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// translate maps repository failures onto structured ledger errors.
func (e *Engine) translate(logger *slog.Logger, ownerID uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	var ledgerErr *shared.Error
	if errors.As(err, &ledgerErr) {
		return err
	}
	if errors.Is(err, owner.ErrOwnerNotFound{}) {
		return shared.Errorf(shared.KindOwnerNotFound, "owner %s not found", ownerID)
	}
	var dup owner.ErrDuplicateOwner
	if errors.As(err, &dup) {
		return shared.Errorf(shared.KindOwnerExists, "owner %s already exists", dup.OwnerID)
	}
	logger.Error("Ledger operation failed", "error", err)
	return shared.Internal(err)
}

func checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &shared.Error{Kind: shared.KindTimeout, Message: "operation aborted before execution", Err: err}
	}
	return nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.Errorf(shared.KindInvalidAmount, "amount must be positive, got %s", amount.String())
	}
	return nil
}

func activeAccount(o *owner.Owner, id uuid.UUID) (*owner.Account, error) {
	acc, err := o.Account(id)
	if err != nil {
		return nil, err
	}
	if !acc.IsActive() {
		return nil, shared.Errorf(shared.KindAccountInactive, "account %s is %s", acc.AccountNumber, acc.Status)
	}
	return acc, nil
}

func (e *Engine) record(ctx context.Context, ownerID uuid.UUID, act fraud.Activity) []fraud.Warning {
	if e.fraud == nil {
		return nil
	}
	return e.fraud.Record(ctx, ownerID, act)
}
