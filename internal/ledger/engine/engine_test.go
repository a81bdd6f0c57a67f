package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/data/memory"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
	"github.com/retail-banking-ledger/internal/ledger/fx"
	"github.com/retail-banking-ledger/internal/ledger/limits"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// stepClock advances by step on every reading
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type fixture struct {
	engine  *Engine
	store   *memory.OwnerRepository
	rates   *fx.Converter
	fraud   *fraud.Detector
	ownerID uuid.UUID
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFixture(t *testing.T, table map[shared.Currency]limits.CurrencyLimits) *fixture {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), step: 10 * time.Second}

	rates := fx.NewConverter(0)
	require.NoError(t, rates.SetRate(fx.Pair{From: shared.CurrencyTRY, To: shared.CurrencyUSD}, d("0.0234"), time.Now()))
	require.NoError(t, rates.SetRate(fx.Pair{From: shared.CurrencyUSD, To: shared.CurrencyTRY}, d("32.5"), time.Now()))

	logger := newTestLogger()
	detector := fraud.NewDetector(fraud.DefaultConfig(), nil, logger)
	store := memory.NewOwnerRepository()

	e := New(Dependencies{
		Store:  store,
		Limits: limits.NewPolicy(table, time.UTC),
		Fraud:  detector,
		Rates:  rates,
		Locks:  fx.NewMemoryRateLock(fx.DefaultLockTTL),
		Logger: logger,
		Clock:  clock.Now,
	})

	o, err := e.CreateOwner(context.Background(), "Ayse Yilmaz")
	require.NoError(t, err)

	return &fixture{engine: e, store: store, rates: rates, fraud: detector, ownerID: o.ID}
}

func (f *fixture) openAccount(t *testing.T, cur shared.Currency, balance string) uuid.UUID {
	t.Helper()
	acc, _, err := f.engine.OpenAccount(context.Background(), f.ownerID, OpenAccountRequest{
		Currency:       cur,
		Name:           string(cur) + " account",
		InitialDeposit: d(balance),
	})
	require.NoError(t, err)
	return acc.ID
}

func (f *fixture) account(t *testing.T, id uuid.UUID) *owner.Account {
	t.Helper()
	o, err := f.store.Get(context.Background(), f.ownerID)
	require.NoError(t, err)
	acc, err := o.Account(id)
	require.NoError(t, err)
	return acc
}

// assertConserved checks every account balance equals its signed history.
func (f *fixture) assertConserved(t *testing.T) {
	t.Helper()
	o, err := f.store.Get(context.Background(), f.ownerID)
	require.NoError(t, err)
	for _, acc := range o.Accounts {
		assert.True(t, acc.Balance.Equal(acc.LedgerBalance()), "account %s balance %s ledger %s", acc.ID, acc.Balance, acc.LedgerBalance())
		assert.False(t, acc.Balance.IsNegative())
	}
}

func TestEngine_DepositWithdrawScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accID := f.openAccount(t, shared.CurrencyTRY, "1000")

	res, err := f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: accID, Amount: d("500")})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, shared.TransactionKindDeposit, res.Transactions[0].Kind)
	assert.True(t, res.Balances[0].Balance.Equal(d("1500")))

	_, err = f.engine.Withdraw(ctx, f.ownerID, WithdrawRequest{AccountID: accID, Amount: d("2000")})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
	assert.True(t, f.account(t, accID).Balance.Equal(d("1500")))

	_, err = f.engine.TransferInternal(ctx, f.ownerID, InternalTransferRequest{FromAccountID: accID, ToAccountID: accID, Amount: d("10")})
	assert.ErrorIs(t, err, shared.ErrSameAccount)

	f.assertConserved(t)
}

func TestEngine_InvalidRequestsDoNotMutate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accID := f.openAccount(t, shared.CurrencyTRY, "100")

	tests := []struct {
		name string
		run  func() error
		want *shared.Error
	}{
		{
			name: "zero deposit",
			run: func() error {
				_, err := f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: accID, Amount: decimal.Zero})
				return err
			},
			want: shared.ErrInvalidAmount,
		},
		{
			name: "negative withdraw",
			run: func() error {
				_, err := f.engine.Withdraw(ctx, f.ownerID, WithdrawRequest{AccountID: accID, Amount: d("-5")})
				return err
			},
			want: shared.ErrInvalidAmount,
		},
		{
			name: "unknown account",
			run: func() error {
				_, err := f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: uuid.New(), Amount: d("5")})
				return err
			},
			want: shared.ErrAccountNotFound,
		},
		{
			name: "above max transfer",
			run: func() error {
				_, err := f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: accID, Amount: d("50000.01")})
				return err
			},
			want: shared.ErrLimitExceeded,
		},
		{
			name: "unknown owner",
			run: func() error {
				_, err := f.engine.Deposit(ctx, uuid.New(), DepositRequest{AccountID: accID, Amount: d("5")})
				return err
			},
			want: shared.ErrOwnerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, tt.want)
			acc := f.account(t, accID)
			assert.True(t, acc.Balance.Equal(d("100")))
			assert.Len(t, acc.Transactions, 1)
		})
	}
}

func TestEngine_BlockedAccountRejectsMovements(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accID := f.openAccount(t, shared.CurrencyTRY, "100")

	_, err := f.engine.BlockAccount(ctx, f.ownerID, accID)
	require.NoError(t, err)

	_, err = f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: accID, Amount: d("5")})
	assert.ErrorIs(t, err, shared.ErrAccountInactive)

	_, err = f.engine.UnblockAccount(ctx, f.ownerID, accID)
	require.NoError(t, err)
	_, err = f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: accID, Amount: d("5")})
	assert.NoError(t, err)
}

func TestEngine_TransferInternalPostsPair(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	from := f.openAccount(t, shared.CurrencyTRY, "1000")
	to := f.openAccount(t, shared.CurrencyTRY, "0")

	res, err := f.engine.TransferInternal(ctx, f.ownerID, InternalTransferRequest{FromAccountID: from, ToAccountID: to, Amount: d("250.50")})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	out, in := res.Transactions[0], res.Transactions[1]
	assert.Equal(t, shared.TransactionKindTransferOut, out.Kind)
	assert.Equal(t, shared.TransactionKindTransferIn, in.Kind)
	assert.True(t, out.Amount.Equal(in.Amount))
	assert.Equal(t, out.Timestamp, in.Timestamp)

	assert.True(t, f.account(t, from).Balance.Equal(d("749.50")))
	assert.True(t, f.account(t, to).Balance.Equal(d("250.50")))
	f.assertConserved(t)

	t.Run("insufficient funds leaves both untouched", func(t *testing.T) {
		_, err := f.engine.TransferInternal(ctx, f.ownerID, InternalTransferRequest{FromAccountID: from, ToAccountID: to, Amount: d("800")})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.True(t, f.account(t, from).Balance.Equal(d("749.50")))
		assert.True(t, f.account(t, to).Balance.Equal(d("250.50")))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		usd := f.openAccount(t, shared.CurrencyUSD, "0")
		_, err := f.engine.TransferInternal(ctx, f.ownerID, InternalTransferRequest{FromAccountID: from, ToAccountID: usd, Amount: d("10")})
		assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
	})
}

func TestEngine_ExchangeScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	try := f.openAccount(t, shared.CurrencyTRY, "1000")
	usd := f.openAccount(t, shared.CurrencyUSD, "0")

	res, err := f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: try, ToAccountID: usd, Amount: d("1000"), OperationID: "op-1"})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	require.NotNil(t, res.ExchangeRate)
	require.NotNil(t, res.ConvertedAmount)

	assert.True(t, res.ExchangeRate.Equal(d("0.0234")))
	assert.True(t, res.ConvertedAmount.Equal(d("23.4")))

	out, in := res.Transactions[0], res.Transactions[1]
	assert.Equal(t, shared.TransactionKindExchangeOut, out.Kind)
	assert.Equal(t, shared.TransactionKindExchangeIn, in.Kind)
	assert.True(t, out.Amount.Equal(d("1000")))
	assert.True(t, in.Amount.Equal(d("23.4")))
	assert.True(t, out.ExchangeRate.Equal(*in.ExchangeRate))

	assert.True(t, f.account(t, try).Balance.IsZero())
	assert.True(t, f.account(t, usd).Balance.Equal(d("23.4")))
	f.assertConserved(t)
}

// Converted amounts are rounded to the target currency's minor units, not truncated.
func TestEngine_ExchangeRoundsConvertedAmount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	try := f.openAccount(t, shared.CurrencyTRY, "5000")
	usd := f.openAccount(t, shared.CurrencyUSD, "0")

	tests := []struct {
		name      string
		amount    string
		converted string
	}{
		{name: "rounds down", amount: "1000.55", converted: "23.41"}, // 23.41287
		{name: "rounds up", amount: "1000.75", converted: "23.42"},   // 23.41755
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{
				FromAccountID: try, ToAccountID: usd, Amount: d(tt.amount), OperationID: fmt.Sprintf("op-round-%d", i),
			})
			require.NoError(t, err)
			require.NotNil(t, res.ConvertedAmount)
			assert.True(t, res.ExchangeRate.Equal(d("0.0234")))
			assert.True(t, res.ConvertedAmount.Equal(d(tt.converted)), "got %s", res.ConvertedAmount)
			assert.True(t, res.Transactions[0].Amount.Equal(d(tt.amount)))
			assert.True(t, res.Transactions[1].Amount.Equal(d(tt.converted)))
		})
	}

	assert.True(t, f.account(t, try).Balance.Equal(d("2998.70")))
	assert.True(t, f.account(t, usd).Balance.Equal(d("46.83")))
	f.assertConserved(t)
}

func TestEngine_ExchangeRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	try := f.openAccount(t, shared.CurrencyTRY, "1000")
	try2 := f.openAccount(t, shared.CurrencyTRY, "0")
	usd := f.openAccount(t, shared.CurrencyUSD, "0")
	eur := f.openAccount(t, shared.CurrencyEUR, "0")

	_, err := f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: try, ToAccountID: try2, Amount: d("100")})
	assert.ErrorIs(t, err, shared.ErrUnsupportedCurrencyPair)

	_, err = f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: try, ToAccountID: usd, Amount: d("9.99")})
	assert.ErrorIs(t, err, shared.ErrBelowMinimumAmount)

	_, err = f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: try, ToAccountID: usd, Amount: d("5000")})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	_, err = f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: try, ToAccountID: eur, Amount: d("100")})
	assert.ErrorIs(t, err, shared.ErrRateUnavailable)

	assert.True(t, f.account(t, try).Balance.Equal(d("1000")))
	f.assertConserved(t)
}

func TestEngine_ExchangeDailyCap(t *testing.T) {
	table := limits.DefaultLimits()
	usdLimits := table[shared.CurrencyUSD]
	usdLimits.DailyExchangeCap = d("100")
	table[shared.CurrencyUSD] = usdLimits

	f := newFixture(t, table)
	ctx := context.Background()
	usd := f.openAccount(t, shared.CurrencyUSD, "500")
	try := f.openAccount(t, shared.CurrencyTRY, "0")

	_, err := f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: usd, ToAccountID: try, Amount: d("60")})
	require.NoError(t, err)

	// 60 + 40 == cap is allowed
	_, err = f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: usd, ToAccountID: try, Amount: d("40")})
	require.NoError(t, err)

	_, err = f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: usd, ToAccountID: try, Amount: d("1")})
	assert.ErrorIs(t, err, shared.ErrDailyLimitExceeded)
	assert.True(t, f.account(t, usd).Balance.Equal(d("400")))
}

func TestEngine_ExchangeRateLockConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	try := f.openAccount(t, shared.CurrencyTRY, "1000")
	usd := f.openAccount(t, shared.CurrencyUSD, "100")

	_, err := f.engine.locks.Acquire(ctx, "op-held", fx.Pair{From: shared.CurrencyUSD, To: shared.CurrencyTRY})
	require.NoError(t, err)

	_, err = f.engine.Exchange(ctx, f.ownerID, ExchangeRequest{FromAccountID: try, ToAccountID: usd, Amount: d("100"), OperationID: "op-held"})
	assert.ErrorIs(t, err, shared.ErrRateLockConflict)
	assert.True(t, f.account(t, try).Balance.Equal(d("1000")))
}

func TestEngine_ExternalTransfer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accID := f.openAccount(t, shared.CurrencyTRY, "1000")
	external := "TR330006100519786457841326"

	res, err := f.engine.TransferExternal(ctx, f.ownerID, ExternalTransferRequest{
		FromAccountID:   accID,
		DestinationIBAN: external,
		RecipientName:   "Mehmet Demir",
		Amount:          d("100"),
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, shared.TransactionKindTransferExternal, res.Transactions[0].Kind)
	assert.Equal(t, external, res.Transactions[0].Counterparty)

	t.Run("own IBAN is rejected", func(t *testing.T) {
		own := f.account(t, accID).IBAN
		_, err := f.engine.TransferExternal(ctx, f.ownerID, ExternalTransferRequest{FromAccountID: accID, DestinationIBAN: own, Amount: d("10")})
		assert.ErrorIs(t, err, shared.ErrSelfTransferRejected)
	})

	t.Run("saved recipient currency mismatch", func(t *testing.T) {
		_, err := f.engine.SaveRecipient(ctx, f.ownerID, SaveRecipientRequest{Name: "UK payee", IBAN: "GB82WEST12345698765432", Currency: shared.CurrencyGBP})
		require.NoError(t, err)
		_, err = f.engine.TransferExternal(ctx, f.ownerID, ExternalTransferRequest{FromAccountID: accID, DestinationIBAN: "GB82WEST12345698765432", Amount: d("10")})
		assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
	})

	assert.True(t, f.account(t, accID).Balance.Equal(d("900")))
	f.assertConserved(t)
}

// A transfer to an IBAN held by another customer of this bank is still
// posted as a debit only; the other owner's account is not credited.
func TestEngine_ExternalTransferToSameBankIBANIsDebitOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accID := f.openAccount(t, shared.CurrencyTRY, "1000")

	other, err := f.engine.CreateOwner(ctx, "Mehmet Demir")
	require.NoError(t, err)
	otherAcc, _, err := f.engine.OpenAccount(ctx, other.ID, OpenAccountRequest{Currency: shared.CurrencyTRY, InitialDeposit: d("50")})
	require.NoError(t, err)

	_, err = f.engine.TransferExternal(ctx, f.ownerID, ExternalTransferRequest{FromAccountID: accID, DestinationIBAN: otherAcc.IBAN, Amount: d("100")})
	require.NoError(t, err)

	got, err := f.engine.GetOwner(ctx, other.ID)
	require.NoError(t, err)
	acc, err := got.Account(otherAcc.ID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(d("50")))
	assert.Len(t, acc.Transactions, 1)
}

func TestEngine_SameCounterpartyWarningOnThirdTransfer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accID := f.openAccount(t, shared.CurrencyTRY, "1000")
	req := ExternalTransferRequest{FromAccountID: accID, DestinationIBAN: "TR330006100519786457841326", Amount: d("10")}

	hasRule := func(ws []fraud.Warning) bool {
		for _, w := range ws {
			if w.Rule == fraud.RuleSameCounterparty {
				return true
			}
		}
		return false
	}

	for i := 1; i <= 3; i++ {
		res, err := f.engine.TransferExternal(ctx, f.ownerID, req)
		require.NoError(t, err, "transfer %d", i)
		assert.Equal(t, i == 3, hasRule(res.Warnings), "transfer %d", i)
	}
	assert.True(t, f.account(t, accID).Balance.Equal(d("970")))
}

func TestEngine_CancelledContextAbortsBeforeMutation(t *testing.T) {
	f := newFixture(t, nil)
	accID := f.openAccount(t, shared.CurrencyTRY, "100")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: accID, Amount: d("10")})
	assert.ErrorIs(t, err, shared.ErrTimeout)
	assert.True(t, f.account(t, accID).Balance.Equal(d("100")))
}

type failingStore struct {
	owner.Repository
}

func (failingStore) Update(ctx context.Context, id uuid.UUID, fn func(o *owner.Owner) error) error {
	return errors.New("connection reset")
}

func TestEngine_InfrastructureFailureIsGeneric(t *testing.T) {
	e := New(Dependencies{Store: failingStore{}, Logger: newTestLogger()})

	_, err := e.Deposit(context.Background(), uuid.New(), DepositRequest{AccountID: uuid.New(), Amount: d("10")})
	require.Error(t, err)
	assert.Equal(t, shared.KindInternal, shared.KindOf(err))
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestEngine_ConcurrentOperationsConserveBalance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.openAccount(t, shared.CurrencyTRY, "1000")
	b := f.openAccount(t, shared.CurrencyTRY, "1000")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_, _ = f.engine.TransferInternal(ctx, f.ownerID, InternalTransferRequest{FromAccountID: a, ToAccountID: b, Amount: d("75")})
			case 1:
				_, _ = f.engine.TransferInternal(ctx, f.ownerID, InternalTransferRequest{FromAccountID: b, ToAccountID: a, Amount: d("50")})
			case 2:
				_, _ = f.engine.Withdraw(ctx, f.ownerID, WithdrawRequest{AccountID: a, Amount: d("120")})
			case 3:
				_, _ = f.engine.Deposit(ctx, f.ownerID, DepositRequest{AccountID: b, Amount: d("30")})
			}
		}(i)
	}
	wg.Wait()

	f.assertConserved(t)

	o, err := f.store.Get(ctx, f.ownerID)
	require.NoError(t, err)
	total := decimal.Zero
	for _, acc := range o.Accounts {
		total = total.Add(acc.Balance)
	}
	// Internal transfers never change the owner's total.
	expected := d("2000")
	for _, acc := range o.Accounts {
		for _, tx := range acc.Transactions {
			switch tx.Kind {
			case shared.TransactionKindWithdraw:
				expected = expected.Sub(tx.Amount)
			case shared.TransactionKindDeposit:
				if tx.Description != "opening deposit" {
					expected = expected.Add(tx.Amount)
				}
			}
		}
	}
	assert.True(t, total.Equal(expected), "total %s expected %s", total, expected)
}
