package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillPayment_CrossCurrency(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	usd := f.openAccount(t, shared.CurrencyUSD, "100")

	bill, err := f.engine.AddBill(ctx, f.ownerID, AddBillRequest{
		Payee:    "Istanbul Electric",
		Amount:   d("200"),
		Currency: shared.CurrencyTRY,
		DueDate:  time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		Category: "fatura",
	})
	require.NoError(t, err)
	assert.Equal(t, shared.CategoryBills, bill.Category)

	bills := NewBillPaymentOrchestrator(f.engine)
	res, err := bills.PayBill(ctx, f.ownerID, PayBillRequest{BillID: bill.ID, AccountID: usd})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)

	tx := res.Transactions[0]
	assert.Equal(t, shared.TransactionKindBillPayment, tx.Kind)
	assert.True(t, tx.Amount.Equal(d("4.68")))
	assert.Equal(t, shared.CurrencyUSD, tx.Currency)
	require.NotNil(t, tx.OriginalAmount)
	assert.True(t, tx.OriginalAmount.Equal(d("200")))
	assert.Equal(t, shared.CurrencyTRY, tx.OriginalCurrency)
	assert.True(t, res.ExchangeRate.Equal(d("0.0234")))

	require.NotNil(t, res.Bill)
	assert.True(t, res.Bill.IsPaid)
	assert.True(t, f.account(t, usd).Balance.Equal(d("95.32")))

	_, err = bills.PayBill(ctx, f.ownerID, PayBillRequest{BillID: bill.ID, AccountID: usd})
	assert.ErrorIs(t, err, shared.ErrBillAlreadyPaid)
	assert.True(t, f.account(t, usd).Balance.Equal(d("95.32")))
	f.assertConserved(t)
}

func TestBillPayment_Failures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	try := f.openAccount(t, shared.CurrencyTRY, "50")
	eur := f.openAccount(t, shared.CurrencyEUR, "500")
	bills := NewBillPaymentOrchestrator(f.engine)

	bill, err := f.engine.AddBill(ctx, f.ownerID, AddBillRequest{
		Payee:    "Water",
		Amount:   d("120"),
		Currency: shared.CurrencyTRY,
		DueDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = bills.PayBill(ctx, f.ownerID, PayBillRequest{BillID: bill.ID, AccountID: try})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	_, err = bills.PayBill(ctx, f.ownerID, PayBillRequest{BillID: bill.ID, AccountID: eur})
	assert.ErrorIs(t, err, shared.ErrRateUnavailable)

	_, err = bills.PayBill(ctx, f.ownerID, PayBillRequest{BillID: f.ownerID, AccountID: try})
	assert.ErrorIs(t, err, shared.ErrBillNotFound)

	o, err := f.engine.GetOwner(ctx, f.ownerID)
	require.NoError(t, err)
	b, err := o.Bill(bill.ID)
	require.NoError(t, err)
	assert.False(t, b.IsPaid)
	assert.Equal(t, shared.BillStatusOverdue, b.StatusAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
}

func TestBillPayment_AutoPay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	funded := f.openAccount(t, shared.CurrencyTRY, "500")
	empty := f.openAccount(t, shared.CurrencyTRY, "0")
	asOf := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	due, err := f.engine.AddBill(ctx, f.ownerID, AddBillRequest{
		Payee: "Internet", Amount: d("300"), Currency: shared.CurrencyTRY,
		DueDate: asOf.Add(-24 * time.Hour), AutoPayAccountID: &funded,
	})
	require.NoError(t, err)
	unfunded, err := f.engine.AddBill(ctx, f.ownerID, AddBillRequest{
		Payee: "Gas", Amount: d("100"), Currency: shared.CurrencyTRY,
		DueDate: asOf.Add(-time.Hour), AutoPayAccountID: &empty,
	})
	require.NoError(t, err)
	_, err = f.engine.AddBill(ctx, f.ownerID, AddBillRequest{
		Payee: "Phone", Amount: d("50"), Currency: shared.CurrencyTRY,
		DueDate: asOf.Add(72 * time.Hour), AutoPayAccountID: &funded,
	})
	require.NoError(t, err)

	report, err := NewBillPaymentOrchestrator(f.engine).PayDueAutoPayBills(ctx, f.ownerID, asOf)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{due.ID}, report.Paid)
	require.Contains(t, report.Failed, unfunded.ID)
	assert.ErrorIs(t, report.Failed[unfunded.ID], shared.ErrInsufficientFunds)

	assert.True(t, f.account(t, funded).Balance.Equal(d("200")))

	t.Run("scheduler sweep pays nothing twice", func(t *testing.T) {
		s := NewAutoPayScheduler(newTestLogger(), NewBillPaymentOrchestrator(f.engine), time.Hour)
		assert.Equal(t, 0, s.Sweep(ctx, asOf))
		assert.True(t, f.account(t, funded).Balance.Equal(d("200")))
	})
}
